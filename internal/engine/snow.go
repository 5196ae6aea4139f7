package engine

import (
	"fmt"
	"math"
	"time"

	"railwatch/internal/types"
)

type snowStrategy struct{}

func (snowStrategy) Name() string { return "snow" }

// Evaluate scores snowfall intensity, rapid accumulation, drifting snow,
// accumulated depth, wet snow around the freezing point, and the planned
// winter Saturday-night clearance window. Tiers are additive.
func (snowStrategy) Evaluate(ctx *Context) Result {
	var res Result
	w := ctx.Weather()

	snow := w.Snowfall
	temp := w.TemperatureC
	wind := w.WindSpeed
	depth := w.SnowDepth
	depthChange := w.SnowDepthChange

	if w.HasWarning(types.WarningHeavySnow) {
		score := float64(heavySnowWarningScore)
		if ctx.Match != nil {
			switch ctx.Match.ID {
			case types.PatternRecordIntenseSnow, types.PatternDisasterSnow:
				score = 100
			}
		}
		res.add(score, "大雪警報が発令されています", 2)
	}

	switch {
	case snow >= ctx.Vuln.SnowThreshold:
		excess := snow - ctx.Vuln.SnowThreshold
		score := heavySnowBaseScore + math.Min(excess*heavySnowExcessCoefficient, heavySnowMaxBonus)
		if ctx.Match != nil {
			switch ctx.Match.ID {
			case types.PatternRecordIntenseSnow:
				score = 100
			case types.PatternDisasterSnow:
				score = 90
			}
		}
		res.add(score, fmt.Sprintf("積雪%scmの予報（除雪作業により遅延見込み）", formatNum(snow)), 5)
	case snow >= moderateSnowMin:
		score := moderateSnowBaseScore + math.Round((snow-moderateSnowMin)*moderateSnowCoefficient)
		res.add(score, fmt.Sprintf("積雪%scmの予報（除雪作業による遅延の可能性）", formatNum(snow)), 7)
	case snow >= lightSnowMin && snow < lightSnowMax:
		res.add(lightSnowScore, fmt.Sprintf("積雪%scm（軽微な影響の可能性）", formatNum(snow)), 10)
	}

	if depthChange >= rapidAccumulationThreshold {
		score := 15 + (depthChange-rapidAccumulationThreshold)*5
		res.add(score, fmt.Sprintf("積雪が急増中（%scm/h）: 車両スタックのリスク増大", formatNum(depthChange)), 4)
	}

	// Drifting snow needs loose ground snow, hard frost and sustained wind.
	// It is a visibility hazard even without active snowfall.
	if depth >= driftingSnowMinDepth && temp <= driftingSnowTempThreshold && wind >= driftingSnowWindThreshold {
		score := driftingSnowBaseScore + math.Max(0, (wind-driftingSnowWindThreshold)*1.0)
		res.add(score, fmt.Sprintf("低温(-2℃未満)かつ強風(%sm/s): 地吹雪による視界不良リスク", formatNum(wind)), 5)
	}

	// Deep settled snow only matters while snow is actively falling;
	// cleared-but-deep snowbanks are not a live risk.
	if snow >= activeSnowfallGate && depth >= moderateSnowDepthThreshold {
		if depth >= criticalSnowDepthThreshold {
			res.add(criticalSnowDepthScore, fmt.Sprintf("記録的積雪（%scm）: 排雪作業による運休リスク", formatNum(depth)), 3)
		} else {
			res.add(moderateSnowDepthScore, fmt.Sprintf("積雪深（%scm）: 排雪作業による遅延リスク", formatNum(depth)), 3)
		}
	}

	// Wet snow around the freezing point sticks to pantographs and switches.
	if temp >= wetSnowTempMin && temp <= wetSnowTempMax && snow >= activeSnowfallGate {
		score := wetSnowBaseScore + (snow-activeSnowfallGate)*10
		res.add(score, fmt.Sprintf("気温%s℃での降雪（湿り雪）: 着雪・分岐器不転換のリスク", formatNum(temp)), 4)
	}

	// Planned clearance runs on deep-winter Saturday nights when ground
	// snow is present.
	if date, err := time.ParseInLocation("2006-01-02", ctx.Input.TargetDate, jst); err == nil && ctx.Input.TargetTime != "" {
		month := date.Month()
		hour := parseHour(ctx.Input.TargetTime, 12)
		if (month == time.January || month == time.February) && date.Weekday() == time.Saturday && depth >= 5 && hour >= 20 {
			res.add(20, "冬季土曜夜間の計画除雪（運休・間引き運転の可能性）", 5)
		}
	}

	return res
}
