package engine

import (
	"fmt"
	"math"

	"railwatch/internal/patterns"
	"railwatch/internal/types"
)

// recoveryResult carries the optional resumption fields of a prediction.
type recoveryResult struct {
	EstimatedRecoveryTime  string
	EstimatedRecoveryHours float64
	RecoveryRecommendation string
	SuspensionReason       string
	Reasons                []types.Reason
}

// predictRecovery simulates "if this suspends (or already has), when does it
// come back". Runs only for active suspensions or high-risk predictions; any
// shortfall in the forecast series degrades to an absent estimate rather
// than an error.
func predictRecovery(ctx *Context, probability int, currentlySuspended bool) recoveryResult {
	var out recoveryResult

	w := ctx.Input.Weather
	if w == nil || (!currentlySuspended && probability < 40) {
		return out
	}

	out.SuspensionReason = suspensionReason(w.WindSpeed, w.Snowfall, w.Precipitation)

	if len(w.SurroundingHours) == 0 {
		return out
	}

	// Only hours at or after the current JST hour matter; resumption cannot
	// land in the past.
	nowHHMM := fmt.Sprintf("%02d:00", ctx.Now.In(jst).Hour())
	var future []types.WeatherSnapshot
	for _, h := range w.SurroundingHours {
		t := h.TargetTime
		if t == "" {
			t = "00:00"
		}
		if t >= nowHHMM || h.Date > ctx.Input.TargetDate {
			future = append(future, h)
		}
	}
	if len(future) == 0 {
		return out
	}

	// Match the historical library against the peak of the whole unsafe
	// span, not just the target hour: recovery depends on how bad the event
	// got overall.
	var peakSnow, peakWind, peakGust float64
	rep := *w
	for _, h := range w.SurroundingHours {
		if h.Snowfall >= peakSnow {
			peakSnow = h.Snowfall
			rep = h
		}
		peakWind = math.Max(peakWind, h.WindSpeed)
		peakGust = math.Max(peakGust, h.WindGust)
	}
	rep.WindSpeed = peakWind
	rep.WindGust = peakGust
	match := patterns.Match(&rep)

	eventStartHour := firstTrainHour
	if st := ctx.Input.Official; st != nil && !st.UpdatedAt.IsZero() {
		eventStartHour = st.UpdatedAt.In(jst).Hour()
	}

	resumption := CalculateResumptionTime(future, ctx.Input.RouteID, match, eventStartHour, ctx.Input.TargetDate)
	if resumption.EstimatedResumption == "" {
		return out
	}

	out.EstimatedRecoveryTime = resumption.EstimatedResumption
	out.EstimatedRecoveryHours = resumption.RequiredBufferHours
	out.RecoveryRecommendation = fmt.Sprintf("%sのため、%s頃の運転再開が見込まれます。",
		resumption.Reason, resumption.EstimatedResumption)

	if currentlySuspended {
		out.Reasons = append(out.Reasons, types.Reason{
			Message:  fmt.Sprintf("【復旧予測】%s", out.RecoveryRecommendation),
			Priority: 0,
		})
		if match != nil {
			tendency := "標準的"
			if match.RecoveryTendency == types.RecoverySlow {
				tendency = "長期化"
			}
			out.Reasons = append(out.Reasons, types.Reason{
				Message:  fmt.Sprintf("【過去事例照合】%sのパターンに類似（%s傾向）", match.Label, tendency),
				Priority: 6,
			})
		}
	}

	// A matched precedent's documented advice outranks the generic
	// recommendation, and a next-day pattern pins the estimate to morning.
	if match != nil {
		out.RecoveryRecommendation = match.Advice
		if match.RecoveryTendency == types.RecoveryNextDay {
			out.EstimatedRecoveryTime = "翌日朝以降"
			out.EstimatedRecoveryHours = 24
		}
	}

	return out
}

// suspensionReason labels the dominant weather cause. Snow outranks wind
// outranks rain.
func suspensionReason(wind, snow, rain float64) string {
	switch {
	case snow >= 3:
		return "大雪のため"
	case wind >= 20:
		return "強風のため"
	case rain >= heavyRainThreshold:
		return "大雨のため"
	default:
		return "気象条件のため"
	}
}
