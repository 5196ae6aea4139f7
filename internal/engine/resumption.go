package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"railwatch/internal/patterns"
	"railwatch/internal/routes"
	"railwatch/internal/types"
)

// ResumptionPrediction is the outcome of the safety-window search: when
// service plausibly resumes and why.
type ResumptionPrediction struct {
	// EstimatedResumption is the "HH:MM" clock time, empty when no safe
	// window exists within the forecast horizon.
	EstimatedResumption string
	SafetyWindowStart   string
	RequiredBufferHours float64
	Reason              string
}

const (
	resumptionWindExtra     = 2.0 // m/s above the regulation threshold still blocks resumption
	resumptionSnowFloor     = 2.5 // cm/h minimum snow tolerance for a safe hour
	accumulationCoefficient = 0.12
	accumulationBufferCap   = 8.0
	clearanceEscalation1    = 10.0 // cm cumulative snow: clearance work
	clearanceEscalation2    = 30.0 // cm cumulative snow: large-scale clearance
	firstTrainClampHHMM     = "05:30"
)

// CalculateResumptionTime searches the hourly forecast for the first stable
// safe window, then stacks mobilization, snow-clearance and inspection
// buffers on top of it. referenceDate anchors multi-day offset arithmetic;
// eventStartHour is when the disruption began, used for the historical floor.
func CalculateResumptionTime(
	forecasts []types.WeatherSnapshot,
	routeID string,
	match *patterns.Pattern,
	eventStartHour int,
	referenceDate string,
) ResumptionPrediction {
	if len(forecasts) == 0 {
		return ResumptionPrediction{Reason: "気象状況の回復が見込まれません"}
	}

	vuln := routes.Lookup(routeID)

	var peakSnow, peakWind, peakGust float64
	for _, h := range forecasts {
		peakSnow = math.Max(peakSnow, h.Snowfall)
		peakWind = math.Max(peakWind, h.WindSpeed)
		peakGust = math.Max(peakGust, h.WindGust)
	}

	// A violent event needs a longer proven-calm stretch before crews will
	// commit to restarting service.
	windowSize := 3
	if peakSnow > 5 || peakWind > 20 {
		windowSize = 4
	}

	safeIdx := -1
	for i := 0; i+windowSize <= len(forecasts); i++ {
		ok := true
		for j := i; j < i+windowSize; j++ {
			if !isHourSafe(&forecasts[j], vuln) {
				ok = false
				break
			}
		}
		if ok {
			safeIdx = i
			break
		}
	}
	if safeIdx == -1 {
		return ResumptionPrediction{Reason: "気象状況の回復が見込まれません"}
	}

	safetyStart := forecasts[safeIdx]
	startHHMM := safetyStart.TargetTime
	if startHHMM == "" {
		startHHMM = "00:00"
	}

	// Mobilization baseline.
	buffer := 1.0
	if peakSnow > 2 || peakWind > 15 {
		buffer = 1.5
	}
	parts := []string{"安全確認"}

	// Snow accumulated while service was blocked has to be cleared before
	// the first train.
	var totalSnow, maxTemp float64
	maxTemp = math.Inf(-1)
	for i := 0; i < safeIdx; i++ {
		totalSnow += forecasts[i].Snowfall
		maxTemp = math.Max(maxTemp, math.Max(forecasts[i].TempMaxC, forecasts[i].TemperatureC))
	}
	if totalSnow > 0 {
		buffer += math.Min(totalSnow*accumulationCoefficient*vuln.VulnerabilityScore, accumulationBufferCap)
		switch {
		case totalSnow >= clearanceEscalation2:
			parts = append(parts, fmt.Sprintf("大規模排雪・除雪（累積%scm）", formatNum(math.Round(totalSnow))))
		case totalSnow >= clearanceEscalation1:
			parts = append(parts, fmt.Sprintf("除雪作業（累積%scm）", formatNum(math.Round(totalSnow))))
		}
	}

	// Wet snow around freezing is heavier and clears slower.
	if totalSnow > 5 && maxTemp > -1 {
		buffer += 1.0
		parts = append(parts, "湿雪除去")
	}

	// Violent wind events require an equipment and track inspection pass.
	if peakWind > 25 || peakGust > 35 {
		buffer += 1.0
		parts = append(parts, "暴風後の設備点検")
	}

	// Historical floor: a matched precedent's typical duration outranks an
	// optimistic forecast-only estimate.
	startHour := parseHour(startHHMM, 0)
	dayOffset := daysBetween(referenceDate, safetyStart.Date)
	absStartHour := float64(startHour + dayOffset*24)

	if match != nil && match.TypicalDurationHours > 0 {
		elapsed := absStartHour + buffer - float64(eventStartHour)
		if elapsed < match.TypicalDurationHours {
			buffer += match.TypicalDurationHours - elapsed
			tendency := "標準的"
			if match.RecoveryTendency == types.RecoverySlow {
				tendency = "長期化"
			}
			parts = append(parts, fmt.Sprintf("過去事例（%s・%s傾向）", match.Label, tendency))
		}
	}

	// Resolve to an absolute clock time, handling day-boundary crossings.
	totalMinutes := int(math.Round((absStartHour + buffer) * 60))
	resumeDay := totalMinutes / (24 * 60)
	minuteOfDay := totalMinutes % (24 * 60)
	hh, mm := minuteOfDay/60, minuteOfDay%60
	hh, mm = clampToFirstTrain(hh, mm)

	reason := fmt.Sprintf("気象回復の見込み（%s以降）を根拠に、%s", startHHMM, strings.Join(parts, "・"))
	if resumeDay >= 1 {
		reason += fmt.Sprintf("（%d日後）", resumeDay)
	}

	return ResumptionPrediction{
		EstimatedResumption: fmt.Sprintf("%02d:%02d", hh, mm),
		SafetyWindowStart:   startHHMM,
		RequiredBufferHours: math.Round(buffer*10) / 10,
		Reason:              reason,
	}
}

// isHourSafe reports whether a single forecast hour permits resumption on
// this route: wind comfortably under the regulation threshold and snowfall
// below half the route's snow threshold (never stricter than 2.5 cm/h).
func isHourSafe(w *types.WeatherSnapshot, vuln types.RouteVulnerability) bool {
	if w.WindSpeed >= vuln.WindThreshold+resumptionWindExtra {
		return false
	}
	snowLimit := math.Max(vuln.SnowThreshold/2, resumptionSnowFloor)
	return w.Snowfall < snowLimit
}

// clampToFirstTrain pushes times in the non-operating window [00:00,05:00)
// to the 05:30 first-train slot.
func clampToFirstTrain(hh, mm int) (int, int) {
	if hh >= 0 && hh < nonOperatingEndHour {
		return 5, 30
	}
	return hh, mm
}

// daysBetween returns the whole-day offset from one YYYY-MM-DD date to
// another, zero when either fails to parse.
func daysBetween(from, to string) int {
	if from == "" || to == "" || from == to {
		return 0
	}
	a, errA := time.ParseInLocation("2006-01-02", from, jst)
	b, errB := time.ParseInLocation("2006-01-02", to, jst)
	if errA != nil || errB != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}
