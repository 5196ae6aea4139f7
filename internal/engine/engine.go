package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"railwatch/internal/patterns"
	"railwatch/internal/routes"
	"railwatch/internal/types"
)

// Engine is the prediction aggregator. It is stateless; the logger is the
// only collaborator and every evaluation is a pure function of (input, now).
type Engine struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Evaluate runs the full pipeline for one route and target instant: raw risk
// scoring, time and season multipliers, the official-status bounds, adaptive
// calibration, pattern matching and the resumption search.
func (e *Engine) Evaluate(input *types.PredictionInput, now time.Time) *types.PredictionResult {
	prep := prepareInput(input, now)

	// Score against the shifted time so late-night queries describe the
	// first train rather than an empty timetable.
	calcInput := *input
	calcInput.TargetTime = prep.EffectiveTargetTime

	vuln := routes.Lookup(input.RouteID)

	var match *patterns.Pattern
	if input.HistoricalMatchID != "" {
		match = patterns.ByID(input.HistoricalMatchID)
	} else if input.Weather != nil {
		match = patterns.Match(input.Weather)
	}

	ctx := &Context{Input: &calcInput, Vuln: vuln, Match: match, Now: now}

	raw := computeRawScore(ctx)
	reasons := raw.Reasons

	hour := parseHour(prep.EffectiveTargetTime, now.In(jst).Hour())
	tm := timeMultiplier(hour)
	totalScore := raw.Total * tm * seasonMultiplier(now.In(jst).Month())

	if tm > 1.0 {
		reasons = append(reasons, types.Reason{Message: "通勤時間帯につき遅延波及リスク上昇", Priority: 12})
	}
	if prep.IsNonOperatingHour {
		reasons = append(reasons, types.Reason{Message: "深夜帯のため始発（06:00）時点の予測です", Priority: 12})
	}

	ceiling := maxProbability(&calcInput)
	probability := int(math.Min(math.Round(totalScore), float64(ceiling)))

	if input.Weather != nil {
		probability = confidenceFilter(probability, totalScore, input.Weather, input.Official)
	}

	snowDepth := 0.0
	if input.Weather != nil {
		snowDepth = input.Weather.SnowDepth
	}
	base := determineBaseStatus(input.Official, input.TargetDate, prep.EffectiveTargetTime, snowDepth)
	probability = base.apply(probability)
	if base.OverrideReason != "" {
		reasons = append(reasons, types.Reason{Message: base.OverrideReason, Priority: 0})
	}

	cal := applyAdaptiveCalibration(ctx, probability, reasons)
	probability = cal.Probability
	reasons = cal.Reasons
	isOfficialOverride := cal.IsOfficialOverride

	currentlySuspended := base.IsOfficialSuspended

	recovery := predictRecovery(ctx, probability, currentlySuspended)

	e.log.Debug("prediction evaluated",
		slog.String("route_id", input.RouteID),
		slog.String("target", input.TargetDate+" "+prep.EffectiveTargetTime),
		slog.Int("probability", probability),
		slog.Int("factors", len(reasons)),
		slog.Bool("suspended", currentlySuspended))

	final := sortAndCapReasons(reasons)
	final = append(recovery.Reasons, final...)

	estimatedRecoveryTime := recovery.EstimatedRecoveryTime
	estimatedRecoveryHours := recovery.EstimatedRecoveryHours
	recoveryRecommendation := recovery.RecoveryRecommendation
	susReason := recovery.SuspensionReason

	// An explicit all-day suspension announcement is absolute: it outranks
	// any weather-derived recovery estimate.
	if input.Official != nil {
		text := FilterOfficialText(input.Official.Text(), input.RouteName)
		if isAllDaySuspension(text) {
			estimatedRecoveryTime = "終日運休"
			estimatedRecoveryHours = 0
			recoveryRecommendation = fmt.Sprintf("JR北海道公式発表: %s", text)
			susReason = "JR北海道公式発表による"
			isOfficialOverride = true

			kept := make(types.Reasons, 0, len(final)+1)
			kept = append(kept, types.Reason{Message: fmt.Sprintf("【公式発表】%s", text), Priority: 0})
			for _, r := range final {
				if strings.HasPrefix(r.Message, "【公式発表】") || strings.HasPrefix(r.Message, "【運休中】") {
					continue
				}
				kept = append(kept, r)
			}
			final = kept
		}
	}

	if currentlySuspended {
		probability = 100
		if !isOfficialOverride {
			final = append(types.Reasons{{
				Message:  fmt.Sprintf("【運休中】%s運転を見合わせています", susReason),
				Priority: 0,
			}}, final...)
		}
	}

	if len(final) == 0 {
		final = types.Reasons{{Message: "現時点で運休リスクを高める要因は検出されていません", Priority: 12}}
	}

	status := statusFromProbability(probability)
	if base.IsPartialSuspension {
		status = types.StatePartial
	}
	if currentlySuspended {
		status = types.StateSuspended
	}

	confidence := types.ConfidenceLow
	if input.Weather != nil {
		confidence = confidenceLevel(probability, len(final), raw.HasRealTime)
	}

	return &types.PredictionResult{
		RouteID:                input.RouteID,
		TargetDate:             input.TargetDate,
		TargetTime:             prep.EffectiveTargetTime,
		Probability:            probability,
		Status:                 status,
		Confidence:             confidence,
		Reasons:                final,
		Impact:                 weatherImpact(probability),
		EstimatedRecoveryTime:  estimatedRecoveryTime,
		EstimatedRecoveryHours: estimatedRecoveryHours,
		RecoveryRecommendation: recoveryRecommendation,
		SuspensionReason:       susReason,
		IsOfficialOverride:     isOfficialOverride,
		IsPartialSuspension:    base.IsPartialSuspension,
		IsPostResumptionChaos:  base.IsPostResumptionChaos,
		IsCurrentlySuspended:   currentlySuspended,
	}
}

// EvaluateWeekly runs the single-point evaluation once per forecast day at
// noon. Live operator and rider data only applies to today's entry, and a
// currently active suspension forces today to 100 for consistency with the
// single-point result. A non-nil hist pins every day to that precomputed
// pattern match instead of rematching per day.
func (e *Engine) EvaluateWeekly(
	routeID, routeName string,
	dailyWeather []types.WeatherSnapshot,
	official *types.OfficialStatus,
	crowd *types.CrowdsourcedStatus,
	hist *patterns.Pattern,
	now time.Time,
) []*types.PredictionResult {
	today := jstDate(now)

	results := make([]*types.PredictionResult, 0, len(dailyWeather))
	for i := range dailyWeather {
		w := dailyWeather[i]
		in := &types.PredictionInput{
			RouteID:    routeID,
			RouteName:  routeName,
			TargetDate: w.Date,
			// Noon keeps the weekly view stable regardless of when it is
			// viewed.
			TargetTime: "12:00",
			Weather:    &w,
		}
		if hist != nil {
			in.HistoricalMatchID = hist.ID
		}
		if w.Date == today {
			in.Official = official
			in.Crowd = crowd
		}
		results = append(results, e.Evaluate(in, now))
	}
	return results
}

// allDaySuspensionPhrases are the operator's wordings for a suspension that
// will not lift today.
func isAllDaySuspension(text string) bool {
	if text == "" {
		return false
	}
	return strings.Contains(text, "終日運休") ||
		strings.Contains(text, "終日運転見合わせ") ||
		strings.Contains(text, "全区間運休") ||
		(strings.Contains(text, "本日の運転") && strings.Contains(text, "見合わせ"))
}
