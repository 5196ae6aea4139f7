// Package patterns is the curated library of named weather disaster
// signatures. Matching is priority-ordered and returns at most one pattern;
// callers fall back to formula-only scoring when nothing matches.
package patterns

import (
	"strconv"
	"strings"
	"time"

	"railwatch/internal/types"
)

// Pattern is one historical disaster signature with its matching conditions
// and documented consequences.
type Pattern struct {
	ID    types.PatternID
	Label string

	// Matching conditions. Zero values mean "not part of this signature".
	MinSnowfall  float64 // cm/h
	MinSnowDepth float64 // cm
	MinWindGust  float64 // m/s
	RequiresStorm bool

	// Consequences.
	Scale                types.SuspensionScale
	TypicalDurationHours float64
	RecoveryTendency     types.RecoveryTendency
	Advice               string

	// Examples lists documented occurrences (dates).
	Examples []string
}

// Library is the full ordered pattern catalogue.
var Library = []Pattern{
	{
		ID:                   types.PatternRecordIntenseSnow,
		Label:                "短時間記録的大雪（2016年12月型）",
		MinSnowfall:          10,
		Scale:                types.ScaleAll,
		TypicalDurationHours: 12,
		RecoveryTendency:     types.RecoveryFast,
		Advice:               "短時間で大量の雪が積もるドカ雪パターンです。駅や線路の除雪が追いつかず突発的な運転見合わせが発生しますが、雪のピークが過ぎれば数時間で再開します。",
		Examples:             []string{"2016-12-22"},
	},
	{
		ID:                   types.PatternDisasterSnow,
		Label:                "札幌圏災害級大雪（2022年2月型）",
		MinSnowfall:          5,
		MinSnowDepth:         40,
		Scale:                types.ScaleAll,
		TypicalDurationHours: 48,
		RecoveryTendency:     types.RecoverySlow,
		Advice:               "2022年2月の大雪では札幌圏の全列車が2日間運休しました。除雪が追いつかず、再開後も数日はダイヤが混乱します。早めの代替手段確保を。",
		Examples:             []string{"2022-02-06", "2022-02-21"},
	},
	{
		ID:                   types.PatternTyphoonRain,
		Label:                "連続台風・記録的大雨（2016年8月型）",
		Scale:                types.ScaleAll,
		TypicalDurationHours: 72,
		RecoveryTendency:     types.RecoverySlow,
		Advice:               "大雨による地盤の緩みは雨が止んだ後も危険が続きます。橋梁・路盤被害が出た場合は長期の運休を覚悟する必要があります。",
		Examples:             []string{"2016-08-17"},
	},
	{
		ID:                   types.PatternExplosiveCyclogenesis,
		Label:                "猛烈な発達を遂げた爆弾低気圧（2014年12月型）",
		MinWindGust:          35,
		RequiresStorm:        true,
		Scale:                types.ScaleAll,
		TypicalDurationHours: 24,
		RecoveryTendency:     types.RecoverySlow,
		Advice:               "猛吹雪による視界ゼロの危険があります。全道規模で交通が止まった事例があり、命を守る行動を優先してください。",
		Examples:             []string{"2014-12-17", "2015-01-19"},
	},
	{
		ID:                   types.PatternHeavyWindLowPressure,
		Label:                "発達した低気圧による暴風（2023年2月型）",
		MinWindGust:          25,
		Scale:                types.ScaleAll,
		TypicalDurationHours: 6,
		RecoveryTendency:     types.RecoverySlow,
		Advice:               "風速25m/sを超えると安全確保のため運転見合わせとなります。風のピークが過ぎるまで数時間は再開されません。",
		Examples:             []string{"2023-02-01", "2024-01-15"},
	},
	{
		ID:                   types.PatternSpringStorm,
		Label:                "春の嵐・急速な融雪（3月-5月型）",
		Scale:                types.ScalePartial,
		TypicalDurationHours: 4,
		RecoveryTendency:     types.RecoveryFast,
		Advice:               "春特有の強風や融雪による地盤の緩み、飛来物による架線トラブルが発生しやすい時期です。",
		Examples:             []string{"2024-03-20", "2024-04-09"},
	},
	{
		ID:                   types.PatternNightSnowRemoval,
		Label:                "除雪作業のための計画運休",
		MinSnowfall:          3,
		Scale:                types.ScalePartial,
		TypicalDurationHours: 12,
		RecoveryTendency:     types.RecoveryNextDay,
		Advice:               "除雪作業時間を確保するための計画運休（最終列車の繰り上げ等）が実施される可能性があります。夜間の移動は早めに。",
		Examples:             []string{"2022-01", "2024-01"},
	},
	{
		ID:                   types.PatternDeerCollision,
		Label:                "秋季エゾシカ多発時期（10-12月夕方）",
		Scale:                types.ScaleDelay,
		TypicalDurationHours: 2,
		RecoveryTendency:     types.RecoveryFast,
		Advice:               "10月〜12月の夕方はエゾシカ衝突事故が最も多い時間帯です。急停車や30分〜2時間程度の遅れに注意してください。",
		Examples:             []string{"2020-10", "2023-11"},
	},
}

var byID = func() map[types.PatternID]*Pattern {
	m := make(map[types.PatternID]*Pattern, len(Library))
	for i := range Library {
		m[Library[i].ID] = &Library[i]
	}
	return m
}()

// ByID returns the pattern for the given identifier, or nil.
func ByID(id types.PatternID) *Pattern {
	if id == "" {
		return nil
	}
	return byID[id]
}

// EffectiveGust applies the gust anomaly guard: a gust more than three times
// the mean wind while the mean is below 15 m/s is treated as forecast noise
// and capped at 3× mean (never below 15 m/s).
func EffectiveGust(wind, gust float64) float64 {
	if wind < 15 && gust > wind*3 {
		capped := wind * 3
		if capped < 15 {
			capped = 15
		}
		return capped
	}
	return gust
}

// Match tests the weather against the catalogue in fixed priority order and
// returns the first matching pattern, or nil. Declaration order breaks ties:
// record/disaster snow > typhoon rain > explosive storm > deer > routine snow.
func Match(w *types.WeatherSnapshot) *Pattern {
	if w == nil {
		return nil
	}

	snow := w.Snowfall
	wind := w.WindSpeed
	rain := w.Precipitation
	gust := EffectiveGust(wind, w.WindGust)
	month, hour := monthAndHour(w)

	switch {
	case snow >= 10:
		return ByID(types.PatternRecordIntenseSnow)
	case snow >= 5:
		return ByID(types.PatternDisasterSnow)
	case month >= 8 && month <= 10 && rain >= 30:
		return ByID(types.PatternTyphoonRain)
	case gust >= 35 || wind >= 33:
		return ByID(types.PatternExplosiveCyclogenesis)
	case month >= 10 && month <= 12 && hour >= 16 && hour <= 20:
		return ByID(types.PatternDeerCollision)
	case snow >= 3:
		return ByID(types.PatternNightSnowRemoval)
	}
	return nil
}

// monthAndHour extracts the calendar month and hour-of-day from the snapshot,
// defaulting to noon when no time of day is present.
func monthAndHour(w *types.WeatherSnapshot) (int, int) {
	month := 0
	if t, err := time.Parse("2006-01-02", w.Date); err == nil {
		month = int(t.Month())
	}
	hour := 12
	if w.TargetTime != "" {
		if h, err := strconv.Atoi(strings.SplitN(w.TargetTime, ":", 2)[0]); err == nil {
			hour = h
		}
	}
	return month, hour
}
