// Package engine implements the suspension risk prediction core: additive
// risk factor strategies, the official-status state machine, adaptive
// calibration against live operator reports, and the resumption-time search.
// Every entry point is a pure function over its arguments; the wall clock is
// always passed in explicitly.
package engine

import (
	"strconv"
	"strings"
	"time"

	"railwatch/internal/patterns"
	"railwatch/internal/types"
)

// Context is the fully resolved evaluation context shared by all strategies.
// Built once per call by the aggregator.
type Context struct {
	Input *types.PredictionInput
	Vuln  types.RouteVulnerability
	Match *patterns.Pattern
	Now   time.Time
}

// Weather returns the snapshot, never nil.
func (c *Context) Weather() *types.WeatherSnapshot {
	if c.Input.Weather != nil {
		return c.Input.Weather
	}
	return &types.WeatherSnapshot{}
}

// Result is one strategy's contribution: a non-negative score and zero or
// more display reasons tagged with sort priorities.
type Result struct {
	Score   float64
	Reasons []types.Reason
}

func (r *Result) add(score float64, message string, priority int) {
	r.Score += score
	r.Reasons = append(r.Reasons, types.Reason{Message: message, Priority: priority})
}

// Strategy scores one physical risk dimension independently of the others.
// Contributions are summed, never maxed, across strategies.
type Strategy interface {
	Name() string
	Evaluate(ctx *Context) Result
}

// defaultStrategies is the fixed evaluation set.
var defaultStrategies = []Strategy{
	windStrategy{},
	snowStrategy{},
	rainStrategy{},
	officialStrategy{},
	otherStrategy{},
}

// parseHour extracts the hour from an "HH:MM" string, returning fallback when
// the string is empty or malformed.
func parseHour(hhmm string, fallback int) int {
	if hhmm == "" {
		return fallback
	}
	h, err := strconv.Atoi(strings.SplitN(hhmm, ":", 2)[0])
	if err != nil || h < 0 || h > 23 {
		return fallback
	}
	return h
}

// parseTargetDateTime combines a YYYY-MM-DD date and HH:MM time into a JST
// instant. The zero time is returned when the date does not parse.
func parseTargetDateTime(date, hhmm string) time.Time {
	if hhmm == "" {
		hhmm = "00:00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, jst)
	if err != nil {
		return time.Time{}
	}
	return t
}

// jstDate formats an instant as the JST calendar date.
func jstDate(t time.Time) string {
	return t.In(jst).Format("2006-01-02")
}

// formatNum renders a measurement the way the forecasts carry it: trailing
// zeros trimmed, so 15.0 prints as "15" and 2.5 as "2.5".
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
