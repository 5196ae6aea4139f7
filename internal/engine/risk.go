package engine

import (
	"fmt"
	"math"
	"time"

	"railwatch/internal/types"
)

// rawScore is the combined pre-multiplier risk evaluation: the sum of all
// strategy contributions scaled once by the route's vulnerability, plus the
// winter base, compound wind-and-snow and historical-pattern additions.
type rawScore struct {
	Total       float64
	Reasons     []types.Reason
	HasRealTime bool
}

// computeRawScore runs every strategy over the context and combines the
// additions. The vulnerability multiplier is applied exactly once, here, so
// individual strategies stay route-agnostic beyond threshold lookups.
func computeRawScore(ctx *Context) rawScore {
	var out rawScore

	var strategySum float64
	for _, s := range defaultStrategies {
		r := s.Evaluate(ctx)
		strategySum += r.Score
		out.Reasons = append(out.Reasons, r.Reasons...)
	}
	out.Total = math.Round(strategySum * ctx.Vuln.VulnerabilityScore)

	if st := ctx.Input.Official; st != nil && st.Status != types.StateNormal && st.Status != types.StateUnknown {
		out.HasRealTime = true
	}
	if cs := ctx.Input.Crowd; cs != nil && cs.ReportCount >= minUserReportCount {
		out.HasRealTime = true
	}

	if ctx.Match != nil {
		// A known precedent pushes the total toward the suspension band
		// regardless of what the formula tiers summed to.
		out.Total += 20
		out.Reasons = append(out.Reasons, types.Reason{
			Message: fmt.Sprintf("【過去事例】%sに近い気象条件です。このケースでは%s時間以上の運休が発生しました",
				ctx.Match.Label, formatNum(ctx.Match.TypicalDurationHours)),
			Priority: 1,
		})
	}

	if winter, display := winterRisk(ctx.Input.TargetDate, ctx.Vuln); winter > 0 {
		out.Total += winter
		if display && out.Total < winterMinDisplayThreshold {
			out.Reasons = append(out.Reasons, types.Reason{
				Message:  "冬季の北海道は天候急変のリスクがあります",
				Priority: 11,
			})
		}
	}

	w := ctx.Weather()
	if compound := compoundRisk(w.WindSpeed, w.Snowfall, ctx.Vuln); compound > 0 {
		out.Total += float64(compound)
		out.Reasons = append(out.Reasons, types.Reason{
			Message:  fmt.Sprintf("強風と積雪の複合影響（+%d%%）", compound),
			Priority: 5,
		})
	}

	// Decisive scoring: two or more high-priority factors at once mean the
	// risks interact, so the total is scaled up rather than just summed.
	critical := 0
	for _, r := range out.Reasons {
		if r.Priority <= 4 {
			critical++
		}
	}
	if critical >= 2 {
		out.Total = math.Round(out.Total * decisiveMultiplier)
	}

	return out
}

// winterRisk returns the November-through-March base risk derived from the
// route's vulnerability, and whether a generic winter notice should be shown
// when nothing else fires.
func winterRisk(targetDate string, vuln types.RouteVulnerability) (float64, bool) {
	date, err := time.ParseInLocation("2006-01-02", targetDate, jst)
	if err != nil {
		return 0, false
	}
	month := date.Month()
	if month < winterStartMonth && month > winterEndMonth {
		return 0, false
	}

	base := minWinterRisk + (vuln.VulnerabilityScore-0.8)*winterRiskCoefficient
	return base, base < winterMinDisplayThreshold
}

// compoundRisk models the interaction of wind and snow: each alone may be
// below its threshold while together they already disrupt operations.
func compoundRisk(wind, snow float64, vuln types.RouteVulnerability) int {
	if vuln.WindThreshold <= 0 || vuln.SnowThreshold <= 0 {
		return 0
	}
	windRatio := wind / vuln.WindThreshold
	snowRatio := snow / vuln.SnowThreshold

	compound := 0.0
	if windRatio >= compoundRiskThreshold && snowRatio >= compoundRiskThreshold {
		compound = compoundRiskBaseScore * (windRatio * snowRatio)
	}
	if windRatio >= 1.0 && snowRatio >= 1.0 {
		compound += compoundRiskBonusScore
	}
	return int(math.Round(compound))
}

// maxProbability decides the probability ceiling from what corroborating
// signal exists. Forecast-only predictions are capped below certainty, and an
// official "normal" caps risk hard.
func maxProbability(input *types.PredictionInput) int {
	limit := maxProbWithoutOfficial

	if st := input.Official; st != nil {
		switch st.Status {
		case types.StateCancelled, types.StateSuspended:
			limit = maxProbWithCancellation
		case types.StateDelay:
			limit = maxProbWithDelay
		case types.StateNormal:
			limit = maxProbWithNormal
		}
	}

	if cs := input.Crowd; cs != nil && cs.Consensus == types.ConsensusStopped && cs.ReportCount >= userConsensusMinReports {
		if maxProbWithUserConsensus > limit {
			limit = maxProbWithUserConsensus
		}
	}

	return limit
}

// confidenceFilter suppresses mid-band probabilities that rest on weak
// weather signals, so the engine does not cry wolf. When the operator reports
// normal operation the filter applies over a wider band and cuts deeper.
func confidenceFilter(probability int, totalScore float64, w *types.WeatherSnapshot, official *types.OfficialStatus) int {
	officialNormal := official != nil && official.Status == types.StateNormal

	inRange := probability >= 30 && probability < 60
	lowScore := totalScore < 40
	if officialNormal {
		inRange = probability >= 10 && probability < 80
		lowScore = totalScore < 100
	}
	weakWeather := w.WindSpeed < 20 && w.WindGust < 30 && w.Snowfall < 5.0

	if inRange && lowScore && weakWeather {
		ratio := 0.8
		if officialNormal {
			ratio = 0.4
		}
		return int(math.Round(float64(probability) * ratio))
	}
	return probability
}
