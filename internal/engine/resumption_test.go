package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railwatch/internal/patterns"
	"railwatch/internal/types"
)

func forecastHour(date, hhmm string, wind, snow float64) types.WeatherSnapshot {
	return types.WeatherSnapshot{
		Date:         date,
		TargetTime:   hhmm,
		WindSpeed:    wind,
		Snowfall:     snow,
		TemperatureC: -5,
		TempMaxC:     -5,
	}
}

func TestCalculateResumptionTime_SafeWindowFound(t *testing.T) {
	forecasts := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "08:00", 30, 0),
		forecastHour("2025-01-15", "09:00", 28, 0),
		forecastHour("2025-01-15", "10:00", 5, 0),
		forecastHour("2025-01-15", "11:00", 5, 0),
		forecastHour("2025-01-15", "12:00", 5, 0),
		forecastHour("2025-01-15", "13:00", 5, 0),
	}

	res := CalculateResumptionTime(forecasts, "jr-hokkaido.hakodate-main", nil, 8, "2025-01-15")
	require.NotEmpty(t, res.EstimatedResumption)
	assert.Equal(t, "10:00", res.SafetyWindowStart)
	assert.Greater(t, res.RequiredBufferHours, 0.0)
	assert.Contains(t, res.Reason, "回復")
	assert.Contains(t, res.Reason, "根拠")
}

func TestCalculateResumptionTime_NoSafeWindow(t *testing.T) {
	forecasts := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "08:00", 30, 8),
		forecastHour("2025-01-15", "09:00", 30, 8),
		forecastHour("2025-01-15", "10:00", 30, 8),
		forecastHour("2025-01-15", "11:00", 30, 8),
	}

	res := CalculateResumptionTime(forecasts, "jr-hokkaido.hakodate-main", nil, 8, "2025-01-15")
	assert.Empty(t, res.EstimatedResumption)
	assert.Empty(t, res.SafetyWindowStart)
	assert.Contains(t, res.Reason, "回復が見込まれません")
}

func TestCalculateResumptionTime_SevereEventNeedsFourSafeHours(t *testing.T) {
	// Peak snow over 5 cm/h widens the required calm stretch to four
	// hours; three safe hours are no longer enough.
	forecasts := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "08:00", 10, 8),
		forecastHour("2025-01-15", "09:00", 5, 0),
		forecastHour("2025-01-15", "10:00", 5, 0),
		forecastHour("2025-01-15", "11:00", 5, 0),
	}

	res := CalculateResumptionTime(forecasts, "jr-hokkaido.hakodate-main", nil, 8, "2025-01-15")
	assert.Empty(t, res.EstimatedResumption)
}

func TestCalculateResumptionTime_ClearanceEscalation(t *testing.T) {
	build := func(perHour float64) []types.WeatherSnapshot {
		fs := make([]types.WeatherSnapshot, 0, 9)
		for i := 0; i < 5; i++ {
			fs = append(fs, forecastHour("2025-01-15", fmt.Sprintf("%02d:00", 8+i), 5, perHour))
		}
		for i := 5; i < 9; i++ {
			fs = append(fs, forecastHour("2025-01-15", fmt.Sprintf("%02d:00", 8+i), 5, 0))
		}
		return fs
	}

	// 29cm cumulative: ordinary clearance wording.
	light := CalculateResumptionTime(build(5.8), "unknown-route", nil, 8, "2025-01-15")
	require.NotEmpty(t, light.EstimatedResumption)
	assert.Contains(t, light.Reason, "除雪作業")
	assert.NotContains(t, light.Reason, "大規模")

	// 31cm cumulative crosses the 30cm threshold: large-scale clearance.
	heavy := CalculateResumptionTime(build(6.2), "unknown-route", nil, 8, "2025-01-15")
	require.NotEmpty(t, heavy.EstimatedResumption)
	assert.Contains(t, heavy.Reason, "大規模")
	assert.Greater(t, heavy.RequiredBufferHours, light.RequiredBufferHours)
}

func TestCalculateResumptionTime_NighttimeClamp(t *testing.T) {
	// Safety window opens at 01:00 with a short buffer; the computed clock
	// time lands inside the non-operating window and snaps to the first
	// train slot.
	forecasts := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "00:00", 20, 0),
		forecastHour("2025-01-15", "01:00", 5, 0),
		forecastHour("2025-01-15", "02:00", 5, 0),
		forecastHour("2025-01-15", "03:00", 5, 0),
	}

	res := CalculateResumptionTime(forecasts, "unknown-route", nil, 0, "2025-01-15")
	assert.Equal(t, "05:30", res.EstimatedResumption)
}

func TestCalculateResumptionTime_NextDayRollover(t *testing.T) {
	// The safe window falls on the following calendar date.
	forecasts := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "22:00", 30, 0),
		forecastHour("2025-01-15", "23:00", 30, 0),
		forecastHour("2025-01-16", "06:00", 5, 0),
		forecastHour("2025-01-16", "07:00", 5, 0),
		forecastHour("2025-01-16", "08:00", 5, 0),
		forecastHour("2025-01-16", "09:00", 5, 0),
	}

	res := CalculateResumptionTime(forecasts, "jr-hokkaido.hakodate-main", nil, 22, "2025-01-15")
	require.NotEmpty(t, res.EstimatedResumption)
	assert.Contains(t, res.Reason, "日後")
}

func TestCalculateResumptionTime_HistoricalFloor(t *testing.T) {
	// The forecast alone suggests a quick restart, but the matched pattern
	// documents 48-hour events: the buffer is raised to meet the precedent.
	forecasts := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "08:00", 5, 3),
		forecastHour("2025-01-15", "09:00", 5, 0),
		forecastHour("2025-01-15", "10:00", 5, 0),
		forecastHour("2025-01-15", "11:00", 5, 0),
	}

	match := patterns.ByID(types.PatternDisasterSnow)
	require.NotNil(t, match)

	res := CalculateResumptionTime(forecasts, "jr-hokkaido.hakodate-main", match, 6, "2025-01-15")
	require.NotEmpty(t, res.EstimatedResumption)
	assert.GreaterOrEqual(t, res.RequiredBufferHours, 40.0)
	assert.Contains(t, res.Reason, "過去事例")
	assert.Contains(t, res.Reason, "長期化")
}

func TestCalculateResumptionTime_ConsistentAcrossQueryTimes(t *testing.T) {
	// The same wind event queried three hours apart: the later query sees a
	// shorter series, but the peaks and the safe window are identical so the
	// estimate must not move.
	early := []types.WeatherSnapshot{
		forecastHour("2025-01-15", "10:00", 30, 0),
		forecastHour("2025-01-15", "11:00", 30, 0),
		forecastHour("2025-01-15", "12:00", 30, 0),
		forecastHour("2025-01-15", "13:00", 30, 0),
		forecastHour("2025-01-15", "14:00", 5, 0),
		forecastHour("2025-01-15", "15:00", 5, 0),
		forecastHour("2025-01-15", "16:00", 5, 0),
		forecastHour("2025-01-15", "17:00", 5, 0),
	}
	late := early[3:]

	a := CalculateResumptionTime(early, "jr-hokkaido.hakodate-main", nil, 10, "2025-01-15")
	b := CalculateResumptionTime(late, "jr-hokkaido.hakodate-main", nil, 10, "2025-01-15")
	require.NotEmpty(t, a.EstimatedResumption)
	assert.Equal(t, a.EstimatedResumption, b.EstimatedResumption)
}

func TestCalculateResumptionTime_EmptySeries(t *testing.T) {
	res := CalculateResumptionTime(nil, "jr-hokkaido.hakodate-main", nil, 8, "2025-01-15")
	assert.Empty(t, res.EstimatedResumption)
}
