package engine

import (
	"fmt"
	"math"

	"railwatch/internal/routes"
	"railwatch/internal/types"
)

type windStrategy struct{}

func (windStrategy) Name() string { return "wind" }

// Evaluate scores wind risk across independent tiers: storm warning, the
// route's regulation threshold, the moderate and light bands below it, and
// gusts. Routes sheltered from the current bearing get wind scores reduced.
func (windStrategy) Evaluate(ctx *Context) Result {
	var res Result
	w := ctx.Weather()

	if w.HasWarning(types.WarningStorm) || w.HasWarning(types.WarningStormSnow) {
		score := float64(stormWarningScore)
		if ctx.Match != nil {
			switch ctx.Match.ID {
			case types.PatternExplosiveCyclogenesis, types.PatternHeavyWindLowPressure:
				// Known catastrophic precedent outranks the formula.
				score = 100
			}
		}
		res.add(score, "暴風警報が発令されています", 1)
	}

	ws := w.WindSpeed
	sheltered := routes.IsSafeWindDirection(w.WindDirection, ctx.Vuln.SafeWindDirections)

	switch {
	case ws >= ctx.Vuln.WindThreshold:
		excess := ws - ctx.Vuln.WindThreshold
		score := strongWindBaseScore + math.Min(excess*strongWindExcessCoefficient, strongWindMaxBonus)
		if sheltered {
			score = math.Round(score * safeWindDirectionMultiplier)
		}
		res.add(score, fmt.Sprintf("風速%sm/sの予報（運転規制基準）", formatNum(ws)), 4)
	case ws >= moderateWindMin:
		score := moderateWindBaseScore + math.Round((ws-moderateWindMin)*moderateWindCoefficient)
		if sheltered {
			score = math.Round(score * safeWindDirectionMultiplier)
		}
		res.add(score, fmt.Sprintf("風速%sm/sの予報（徐行運転による遅延の可能性）", formatNum(ws)), 6)
	case ws >= lightWindMin && ws < lightWindMax:
		res.add(lightWindScore, fmt.Sprintf("風速%sm/s（軽微な影響の可能性）", formatNum(ws)), 10)
	}

	if gust := w.WindGust; gust >= windGustDangerThreshold {
		var score float64
		if ws < 15 && gust > ws*3 {
			// Gust far beyond the mean on light wind is likely forecast
			// noise; discount it rather than trust it.
			effective := math.Min(gust, ws*3)
			score = windGustBaseScore + math.Min(math.Max(0, effective-windGustDangerThreshold), windGustMaxBonus)*0.5
			res.Reasons = append(res.Reasons, types.Reason{
				Message:  fmt.Sprintf("瞬間風速%sm/sの予報（突風による影響の可能性 ※予測値不安定）", formatNum(gust)),
				Priority: 6,
			})
		} else {
			score = windGustBaseScore + math.Min(gust-windGustDangerThreshold, windGustMaxBonus)
			res.Reasons = append(res.Reasons, types.Reason{
				Message:  fmt.Sprintf("瞬間風速%sm/sの予報（突風による一時運転見合わせの可能性）", formatNum(gust)),
				Priority: 6,
			})
		}
		if sheltered {
			score = math.Round(score * safeWindDirectionMultiplier)
		}
		res.Score += score
	}

	return res
}
