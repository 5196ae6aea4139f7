package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"railwatch/internal/config"
	"railwatch/internal/routes"
	"railwatch/internal/types"
)

// surroundingSpan is the number of hours kept on each side of the target hour
// for trend analysis and the resumption search.
const surroundingSpan = 12

// hourlyFields is the set of Open-Meteo hourly variables the engine consumes.
const hourlyFields = "temperature_2m,precipitation,wind_speed_10m,wind_gusts_10m," +
	"snow_depth,snowfall,winddirection_10m,pressure_msl"

// WeatherClient fetches hourly forecasts from Open-Meteo for a route's
// representative point and shapes them into WeatherSnapshot values.
type WeatherClient struct {
	base    *BaseClient
	baseURL string
	log     *slog.Logger
}

// NewWeatherClient builds a WeatherClient over the shared resilient base
// client.
func NewWeatherClient(httpClient *http.Client, cfg config.WeatherConfig, log *slog.Logger) *WeatherClient {
	return &WeatherClient{
		base:    NewBaseClient(httpClient, "open-meteo", DefaultRetryPolicy(), "RailWatch/1.0"),
		baseURL: cfg.BaseURL,
		log:     log,
	}
}

// openMeteoResponse mirrors the subset of the Open-Meteo hourly payload the
// client reads. Parallel arrays are indexed by hour.
type openMeteoResponse struct {
	Hourly struct {
		Time          []string  `json:"time"` // "2025-01-15T08:00"
		Temperature   []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		WindGust      []float64 `json:"wind_gusts_10m"`
		SnowDepth     []float64 `json:"snow_depth"` // meters
		Snowfall      []float64 `json:"snowfall"`   // cm/h
		WindDirection []float64 `json:"winddirection_10m"`
		PressureMSL   []float64 `json:"pressure_msl"`
	} `json:"hourly"`
}

// FetchHourly returns the snapshot for the hour of targetDate/targetTime at
// the route's representative point, with SurroundingHours populated for the
// ±12h window.
func (c *WeatherClient) FetchHourly(ctx context.Context, routeID, targetDate, targetTime string) (*types.WeatherSnapshot, error) {
	data, err := c.fetch(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if len(data.Hourly.Time) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "forecast response contained no hours", nil)
	}

	idx := closestHourIndex(data.Hourly.Time, targetDate, targetTime)
	snap := data.snapshotAt(idx)

	lo := idx - surroundingSpan
	if lo < 0 {
		lo = 0
	}
	hi := idx + surroundingSpan
	if hi > len(data.Hourly.Time)-1 {
		hi = len(data.Hourly.Time) - 1
	}
	for i := lo; i <= hi; i++ {
		snap.SurroundingHours = append(snap.SurroundingHours, *data.snapshotAt(i))
	}

	return snap, nil
}

// FetchDaily aggregates the hourly forecast into one snapshot per day for the
// weekly outlook. Only service hours (05:00 to 23:00) count toward the
// aggregates, so a burst of overnight wind does not condemn the whole day.
func (c *WeatherClient) FetchDaily(ctx context.Context, routeID string) ([]types.WeatherSnapshot, error) {
	data, err := c.fetch(ctx, routeID)
	if err != nil {
		return nil, err
	}

	type dayAgg struct {
		temps, precip, winds, gusts, depths, snowfalls, dirs []float64
	}
	byDate := map[string]*dayAgg{}
	var order []string

	for i, ts := range data.Hourly.Time {
		date, hhmm, ok := strings.Cut(ts, "T")
		if !ok {
			continue
		}
		hour, _ := strconv.Atoi(strings.SplitN(hhmm, ":", 2)[0])
		if hour < 5 || hour > 23 {
			continue
		}
		agg, ok := byDate[date]
		if !ok {
			agg = &dayAgg{}
			byDate[date] = agg
			order = append(order, date)
		}
		agg.temps = append(agg.temps, at(data.Hourly.Temperature, i))
		agg.precip = append(agg.precip, at(data.Hourly.Precipitation, i))
		agg.winds = append(agg.winds, at(data.Hourly.WindSpeed, i))
		agg.gusts = append(agg.gusts, at(data.Hourly.WindGust, i))
		agg.depths = append(agg.depths, at(data.Hourly.SnowDepth, i))
		agg.snowfalls = append(agg.snowfalls, at(data.Hourly.Snowfall, i))
		agg.dirs = append(agg.dirs, at(data.Hourly.WindDirection, i))
	}

	out := make([]types.WeatherSnapshot, 0, len(order))
	for _, date := range order {
		agg := byDate[date]
		if len(agg.temps) == 0 {
			continue
		}

		// The 70th-percentile wind captures sustained bad weather without
		// letting a single gusty hour dominate the day.
		wind := upperPercentile(agg.winds, 0.30)
		gust := upperPercentile(agg.gusts, 0.30)

		// Wind direction is taken from the hour of peak wind; the bearing at
		// the risky moment matters, not the daily average.
		dir := agg.dirs[maxIndex(agg.winds)]

		snap := types.WeatherSnapshot{
			Date:          date,
			TemperatureC:  maxOf(agg.temps),
			TempMaxC:      maxOf(agg.temps),
			TempMinC:      minOf(agg.temps),
			Precipitation: sumOf(agg.precip),
			WindSpeed:     wind,
			WindGust:      gust,
			WindDirection: &dir,
			Snowfall:      maxOf(agg.snowfalls),
			SnowDepth:     maxOf(agg.depths) * 100,
		}
		snap.Warnings = deriveWarnings(snap.Precipitation, snap.WindSpeed, snap.Snowfall, snap.WindGust)
		out = append(out, snap)
	}
	return out, nil
}

// fetch performs the HTTP round trip and decodes the payload.
func (c *WeatherClient) fetch(ctx context.Context, routeID string) (*openMeteoResponse, error) {
	loc := routes.LocationFor(routeID)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	q.Set("hourly", hourlyFields)
	q.Set("timezone", "Asia/Tokyo")
	q.Set("wind_speed_unit", "ms")
	q.Set("forecast_days", "7")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build forecast request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("forecast provider returned %d", resp.StatusCode),
			nil,
		)
	}

	var data openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode forecast response", err)
	}

	c.log.DebugContext(ctx, "forecast fetched",
		"route_id", routeID, "point", loc.Name, "hours", len(data.Hourly.Time))
	return &data, nil
}

// snapshotAt shapes one hourly row into a WeatherSnapshot. Snow depth is
// converted from the provider's meters to the centimeters the thresholds use.
func (r *openMeteoResponse) snapshotAt(i int) *types.WeatherSnapshot {
	date, hhmm, _ := strings.Cut(r.Hourly.Time[i], "T")

	depth := at(r.Hourly.SnowDepth, i)
	prevDepth := depth
	if i > 0 {
		prevDepth = at(r.Hourly.SnowDepth, i-1)
	}

	dir := at(r.Hourly.WindDirection, i)
	snap := &types.WeatherSnapshot{
		Date:            date,
		TargetTime:      hhmm,
		TemperatureC:    at(r.Hourly.Temperature, i),
		TempMaxC:        at(r.Hourly.Temperature, i) + 2,
		TempMinC:        at(r.Hourly.Temperature, i) - 2,
		Precipitation:   at(r.Hourly.Precipitation, i),
		WindSpeed:       at(r.Hourly.WindSpeed, i),
		WindGust:        at(r.Hourly.WindGust, i),
		WindDirection:   &dir,
		Snowfall:        at(r.Hourly.Snowfall, i),
		SnowDepth:       depth * 100,
		SnowDepthChange: math.Round((depth-prevDepth)*100*10) / 10,
		PressureHPa:     at(r.Hourly.PressureMSL, i),
	}
	snap.Warnings = deriveWarnings(snap.Precipitation, snap.WindSpeed, snap.Snowfall, snap.WindGust)
	return snap
}

// deriveWarnings synthesizes warning flags from forecast values. The
// thresholds sit slightly above the JMA criteria because the model's raw
// values run hot.
func deriveWarnings(precipitation, windSpeed, snowfall, windGust float64) []types.Warning {
	var warnings []types.Warning

	if windSpeed >= 23 {
		warnings = append(warnings, types.Warning{Type: types.WarningStorm, Area: "北海道"})
	} else if windSpeed >= 16 || windGust >= 35 {
		warnings = append(warnings, types.Warning{Type: types.AdvisoryStrongWind, Area: "北海道"})
	}

	if precipitation >= 30 {
		warnings = append(warnings, types.Warning{Type: types.WarningHeavyRain, Area: "北海道"})
	}

	// Hourly intensity of 4 cm/h sustained is warning-grade snowfall.
	if snowfall >= 4 {
		warnings = append(warnings, types.Warning{Type: types.WarningHeavySnow, Area: "北海道"})
	}

	return warnings
}

// closestHourIndex finds the hourly row nearest the requested clock time on
// the requested date, or index 0 when the date is absent from the series.
func closestHourIndex(timestamps []string, targetDate, targetTime string) int {
	targetHour := 12
	if hh, _, ok := strings.Cut(targetTime, ":"); ok {
		if v, err := strconv.Atoi(hh); err == nil {
			targetHour = v
		}
	}

	best := 0
	bestDiff := math.MaxInt
	for i, ts := range timestamps {
		date, hhmm, ok := strings.Cut(ts, "T")
		if !ok || date != targetDate {
			continue
		}
		hour, _ := strconv.Atoi(strings.SplitN(hhmm, ":", 2)[0])
		diff := hour - targetHour
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

func at(vals []float64, i int) float64 {
	if i < 0 || i >= len(vals) {
		return 0
	}
	return vals[i]
}

// upperPercentile returns the value at the given fraction from the top of the
// distribution (0.30 yields the 70th percentile).
func upperPercentile(vals []float64, frac float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	idx := int(float64(len(sorted)) * frac)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func maxIndex(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

func maxOf(vals []float64) float64 {
	out := math.Inf(-1)
	for _, v := range vals {
		if v > out {
			out = v
		}
	}
	return out
}

func minOf(vals []float64) float64 {
	out := math.Inf(1)
	for _, v := range vals {
		if v < out {
			out = v
		}
	}
	return out
}

func sumOf(vals []float64) float64 {
	var out float64
	for _, v := range vals {
		out += v
	}
	return out
}
