package engine

import (
	"fmt"
	"math"

	"railwatch/internal/types"
)

type rainStrategy struct{}

func (rainStrategy) Name() string { return "rain" }

func (rainStrategy) Evaluate(ctx *Context) Result {
	var res Result
	w := ctx.Weather()

	if w.HasWarning(types.WarningHeavyRain) {
		res.add(heavyRainWarningScore, "大雨警報が発令されています", 3)
	}

	rain := w.Precipitation
	switch {
	case rain >= heavyRainThreshold:
		score := heavyRainBaseScore + math.Min(math.Round((rain-heavyRainThreshold)*heavyRainExcessCoefficient), heavyRainMaxBonus)
		res.add(score, fmt.Sprintf("降水量%smmの予報", formatNum(rain)), 6)
	case rain >= moderateRainMin && rain < moderateRainMax:
		score := moderateRainBaseScore + math.Round(rain*moderateRainCoefficient)
		res.add(score, fmt.Sprintf("降水量%smm（視界不良の可能性）", formatNum(rain)), 9)
	}

	return res
}
