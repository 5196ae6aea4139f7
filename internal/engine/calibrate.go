package engine

import (
	"fmt"
	"math"

	"railwatch/internal/types"
)

// calibration is the outcome of reconciling the model's theoretical risk for
// right now against what the operator is actually reporting right now.
type calibration struct {
	Probability        int
	Reasons            []types.Reason
	IsOfficialOverride bool
}

// applyAdaptiveCalibration computes the gap between the officially reported
// risk and the formula's own estimate for the current hour, then bleeds that
// gap into the prediction with exponential decay over the hours until the
// target. A gap is evidence the formula is mis-calibrated for current
// conditions; a suspension decays slower because suspensions linger.
func applyAdaptiveCalibration(ctx *Context, probability int, reasons []types.Reason) calibration {
	out := calibration{Probability: probability, Reasons: reasons}

	in := ctx.Input
	if in.Official == nil || in.TargetDate == "" || in.TargetTime == "" ||
		in.Weather == nil || len(in.Weather.SurroundingHours) == 0 {
		return out
	}

	target := parseTargetDateTime(in.TargetDate, in.TargetTime)
	if target.IsZero() {
		return out
	}
	hoursFromNow := target.Sub(ctx.Now).Hours()
	if hoursFromNow < calibrationPastLimit || hoursFromNow > calibrationFutureLimit {
		return out
	}

	var actualRiskNow float64
	switch in.Official.Status {
	case types.StateSuspended, types.StateCancelled:
		actualRiskNow = 100
	case types.StateDelay:
		actualRiskNow = 50
	case types.StateNormal:
		actualRiskNow = 0
	default:
		return out
	}

	// The model's view of right now: re-score the surrounding-hour snapshot
	// closest to the current hour with the same multipliers.
	nowHour := ctx.Now.In(jst).Hour()
	nowHourStr := fmt.Sprintf("%02d:00", nowHour)
	weatherNow := in.Weather
	for i := range in.Weather.SurroundingHours {
		if in.Weather.SurroundingHours[i].TargetTime == nowHourStr {
			weatherNow = &in.Weather.SurroundingHours[i]
			break
		}
	}

	inputNow := *in
	inputNow.Weather = weatherNow
	inputNow.TargetTime = nowHourStr
	ctxNow := &Context{Input: &inputNow, Vuln: ctx.Vuln, Match: ctx.Match, Now: ctx.Now}

	raw := computeRawScore(ctxNow)
	scoreNow := raw.Total * timeMultiplier(nowHour) * seasonMultiplier(ctx.Now.In(jst).Month())
	theoreticalRiskNow := math.Min(math.Round(scoreNow), float64(maxProbability(&inputNow)))

	delta := actualRiskNow - theoreticalRiskNow

	decayBase := calibrationDecayBase
	if actualRiskNow == 100 {
		decayBase = calibrationDecayBaseSuspended
	}
	adjustment := delta * math.Pow(decayBase, math.Max(0, hoursFromNow))

	previous := probability
	adjusted := int(math.Floor(math.Min(math.Max(float64(probability)+adjustment, 0), 100)))

	// Suspension lock: while a same-day suspension is active, every target
	// before the announced resumption stays at 100 so the day's timeline is
	// consistent with the live status.
	isToday := in.TargetDate == jstDate(ctx.Now)
	currentlySuspended := in.Official.Status == types.StateSuspended || in.Official.Status == types.StateCancelled
	if isToday && currentlySuspended {
		afterResumption := false
		if in.Official.ResumptionTime != nil && !target.Before(in.Official.ResumptionTime.In(jst)) {
			afterResumption = true
		}
		if !afterResumption {
			adjusted = 100
		} else {
			adjusted = previous
		}
	}

	// A strong live weather signal keeps a floor under any downward
	// adjustment, even when the operator currently reports normal.
	if (weatherNow.WindGust >= extremeWeatherGustThreshold || weatherNow.Snowfall >= extremeWeatherSnowThreshold) &&
		adjustment < 0 && adjusted < extremeWeatherMinRisk {
		adjusted = extremeWeatherMinRisk
	}

	if math.Abs(adjustment) > calibrationReasonThreshold {
		msg := fmt.Sprintf("【現在運休・遅延】直近の状況を考慮し、通常予測(%d%%)よりリスクを高めています", previous)
		if adjustment < 0 {
			msg = fmt.Sprintf("【現在平常】直近の運行実績を考慮し、通常予測(%d%%)よりリスクを調整しています", previous)
		}
		out.Reasons = append(out.Reasons, types.Reason{Message: msg, Priority: 0})
	}

	out.Probability = adjusted
	out.IsOfficialOverride = math.Abs(adjustment) > 5
	return out
}
