package engine

import (
	"fmt"
	"math"
	"time"

	"railwatch/internal/types"
)

type otherStrategy struct{}

func (otherStrategy) Name() string { return "other" }

// Evaluate covers the signals outside the big three weather dimensions:
// crowdsourced rider reports, thunder advisories, seasonal deer collisions
// and a barometric pressure-drop scan over the surrounding hours.
func (otherStrategy) Evaluate(ctx *Context) Result {
	var res Result
	w := ctx.Weather()

	if cs := ctx.Input.Crowd; cs != nil && cs.ReportCount >= minUserReportCount && cs.Consensus != types.ConsensusNormal && cs.Consensus != types.ConsensusUnknown {
		var base float64
		switch cs.Consensus {
		case types.ConsensusStopped:
			base = userReportStoppedScore
		case types.ConsensusDelayed:
			base = userReportDelayedScore
		default:
			base = userReportCrowdedScore
		}
		bonus := math.Min(float64(cs.ReportCount)*userReportCountBonusCoefficient, userReportMaxBonus)

		label := "遅延あり"
		if cs.Consensus == types.ConsensusStopped {
			label = "運休・見合わせ"
		}
		res.add(base+bonus, fmt.Sprintf("ユーザー%d件の報告: %s", cs.ReportCount, label), 10)
	}

	if w.HasWarning(types.AdvisoryThunder) {
		res.add(thunderAdvisoryScore, "雷注意報が発令されています", 11)
	}

	if ctx.Vuln.HasDeerRisk && ctx.Input.Weather != nil {
		if date, err := time.ParseInLocation("2006-01-02", ctx.Input.TargetDate, jst); err == nil {
			month := date.Month()
			inSeason := month >= time.October || month <= time.March
			if inSeason {
				// Dusk through dawn; an unspecified time assumes risk.
				hour := parseHour(ctx.Input.TargetTime, -1)
				if hour == -1 || hour >= 16 || hour <= 6 {
					res.add(10, "エゾシカ多発時期・時間帯（衝突リスクあり）", 8)
				}
			}
		}
	}

	if score, swing := pressureDrop(w); score > 0 {
		priority := 3
		msg := fmt.Sprintf("急速な気圧低下（%shPa）: 爆弾低気圧の兆候", formatNum(swing))
		if score == pressureDropModerateScore {
			priority = 7
			msg = fmt.Sprintf("気圧低下傾向（%shPa）: 天候急変の可能性", formatNum(swing))
		}
		res.add(score, msg, priority)
	}

	return res
}

// pressureDrop scans the surrounding-hours series for a falling pressure
// swing. Returns the score and the observed swing in hPa; zero when the
// series is too short or pressure is steady or rising.
func pressureDrop(w *types.WeatherSnapshot) (float64, float64) {
	hours := w.SurroundingHours
	if len(hours) < 2 {
		return 0, 0
	}

	maxP, minP := 0.0, 0.0
	maxIdx, minIdx := -1, -1
	for i, h := range hours {
		if h.PressureHPa == 0 {
			continue
		}
		if maxIdx == -1 || h.PressureHPa > maxP {
			maxP, maxIdx = h.PressureHPa, i
		}
		if minIdx == -1 || h.PressureHPa < minP {
			minP, minIdx = h.PressureHPa, i
		}
	}
	// The drop must run forward in time.
	if maxIdx == -1 || minIdx <= maxIdx {
		return 0, 0
	}

	swing := maxP - minP
	if swing >= pressureDropSevereThreshold {
		return pressureDropSevereScore, swing
	}
	if swing >= pressureDropModerateThreshold {
		return pressureDropModerateScore, swing
	}
	return 0, 0
}
