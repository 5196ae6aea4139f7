package engine

import "time"

// jst is the operator's timezone. All "today" and hour-of-day decisions are
// made in JST regardless of the host clock's zone.
var jst = time.FixedZone("JST", 9*60*60)

// Probability ceilings. The ceiling depends on what corroborating signal is
// available: forecast-only predictions never reach 100.
const (
	maxProbWithoutOfficial  = 85
	maxProbWithCancellation = 100
	maxProbWithDelay        = 90
	maxProbWithNormal       = 35
	maxProbWithUserConsensus = 95
)

// Winter base risk (November through March).
const (
	minWinterRisk             = 5
	winterRiskCoefficient     = 3
	winterStartMonth          = time.November
	winterEndMonth            = time.March
	winterMinDisplayThreshold = 8
)

// Compound wind-and-snow risk.
const (
	compoundRiskThreshold  = 0.7
	compoundRiskBaseScore  = 20
	compoundRiskBonusScore = 25
	// decisiveMultiplier boosts the total when two or more high-priority
	// factors fire at once.
	decisiveMultiplier = 1.5
)

// Wind thresholds and scores.
const (
	lightWindMin   = 5.0
	lightWindMax   = 10.0
	lightWindScore = 3

	moderateWindMin         = 13.0
	moderateWindBaseScore   = 10
	moderateWindCoefficient = 1.5

	strongWindBaseScore         = 50
	strongWindExcessCoefficient = 3
	strongWindMaxBonus          = 40

	windGustDangerThreshold = 25.0
	windGustBaseScore       = 20
	windGustMaxBonus        = 25

	safeWindDirectionMultiplier = 0.3
)

// Snowfall intensity thresholds (cm/h) and scores.
const (
	lightSnowMin   = 0.5
	lightSnowMax   = 2.0
	lightSnowScore = 5

	moderateSnowMin         = 2.0
	moderateSnowBaseScore   = 25
	moderateSnowCoefficient = 15

	heavySnowBaseScore         = 65
	heavySnowExcessCoefficient = 10
	heavySnowMaxBonus          = 30
)

// Accumulated snow depth (cm).
const (
	moderateSnowDepthThreshold = 15.0
	moderateSnowDepthScore     = 20
	criticalSnowDepthThreshold = 40.0
	criticalSnowDepthScore     = 50

	// Depth alone is not a live risk; it only counts while snow is
	// actively falling at or above this rate.
	activeSnowfallGate = 1.0

	rapidAccumulationThreshold = 3.0

	driftingSnowTempThreshold = -2.0
	driftingSnowWindThreshold = 10.0
	driftingSnowBaseScore     = 15
	driftingSnowMinDepth      = 5.0

	wetSnowTempMin   = -1.0
	wetSnowTempMax   = 2.0
	wetSnowBaseScore = 20
)

// Rain thresholds (mm).
const (
	moderateRainMin         = 10.0
	moderateRainMax         = 30.0
	moderateRainBaseScore   = 5
	moderateRainCoefficient = 0.4

	heavyRainThreshold         = 30.0
	heavyRainBaseScore         = 25
	heavyRainExcessCoefficient = 0.5
	heavyRainMaxBonus          = 20
)

// Warning scores.
const (
	stormWarningScore     = 80
	heavySnowWarningScore = 70
	heavyRainWarningScore = 60
	thunderAdvisoryScore  = 10
)

// Crowdsourced report scoring.
const (
	minUserReportCount             = 3
	userReportStoppedScore         = 35
	userReportDelayedScore         = 20
	userReportCrowdedScore         = 10
	userReportCountBonusCoefficient = 2
	userReportMaxBonus             = 15
	userConsensusMinReports        = 5
)

// Barometric pressure-drop detection over the surrounding-hours series. A
// 24 hPa swing is the bomb-cyclone signature.
const (
	pressureDropSevereThreshold   = 24.0
	pressureDropModerateThreshold = 12.0
	pressureDropSevereScore       = 30
	pressureDropModerateScore     = 15
)

// Status thresholds: probability bands mapped to the predicted state label.
const (
	statusCancelledThreshold = 70
	statusSuspendedThreshold = 65
	statusDelayedThreshold   = 25
)

// Weather impact label bands.
const (
	impactSevereThreshold   = 60
	impactModerateThreshold = 30
	impactMinorThreshold    = 10
)

// Confidence rules.
const (
	highConfidenceMinFactors     = 3
	highConfidenceMinProbability = 60
	mediumConfidenceMinFactors   = 1
	mediumConfidenceMinProbability = 30
	realtimeDataMinFactors       = 2
)

// Display limit for the reasons list.
const maxDisplayReasons = 5

// Timing policy. Kept as single named constants because the calibration and
// resumption logic both depend on them.
const (
	// nearRealTimeWindow marks a request as "live" when the target is
	// within this distance of the current instant.
	nearRealTimeWindow = 45 * time.Minute

	// chaosWindow is the post-resumption period of elevated disruption.
	// Deep ground snow extends it.
	chaosWindow         = 2 * time.Hour
	chaosWindowDeepSnow = 3 * time.Hour
	chaosDeepSnowDepth  = 30.0

	// Calibration applies only to targets within this range of now.
	calibrationPastLimit   = -1.0 // hours
	calibrationFutureLimit = 12.0 // hours

	calibrationDecayBase          = 0.8
	calibrationDecayBaseSuspended = 0.9
	calibrationReasonThreshold    = 15.0

	extremeWeatherGustThreshold = 18.0
	extremeWeatherSnowThreshold = 3.0
	extremeWeatherMinRisk       = 30

	firstTrainHour      = 6
	nonOperatingEndHour = 5
)

// timeMultipliers boost risk in the commute bands where a disruption cascades
// through the timetable.
var timeMultipliers = map[int]float64{
	6:  1.1,
	7:  1.25,
	8:  1.25,
	9:  1.15,
	17: 1.2,
	18: 1.2,
	19: 1.1,
}

func timeMultiplier(hour int) float64 {
	if m, ok := timeMultipliers[hour]; ok {
		return m
	}
	return 1.0
}

func seasonMultiplier(month time.Month) float64 {
	switch month {
	case time.January, time.February:
		return 1.1
	case time.December, time.March:
		return 1.05
	default:
		return 1.0
	}
}
