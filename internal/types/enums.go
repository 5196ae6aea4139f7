package types

// OperationState is the coarse operational state of a route, both as reported
// by the operator and as predicted by the engine.
type OperationState string

const (
	StateUnknown   OperationState = "unknown"
	StateNormal    OperationState = "normal"
	StateDelay     OperationState = "delay"
	StatePartial   OperationState = "partial"
	StateSuspended OperationState = "suspended"
	StateCancelled OperationState = "cancelled"
)

// ConsensusState is the aggregated verdict of crowdsourced rider reports.
type ConsensusState string

const (
	ConsensusUnknown ConsensusState = "unknown"
	ConsensusNormal  ConsensusState = "normal"
	ConsensusDelayed ConsensusState = "delayed"
	ConsensusCrowded ConsensusState = "crowded"
	ConsensusStopped ConsensusState = "stopped"
)

// WarningType identifies an active weather warning or advisory from the
// meteorological agency. Values carry the agency's Japanese labels because
// the operator feed and the warning feed share them verbatim.
type WarningType string

const (
	WarningStorm        WarningType = "暴風警報"
	WarningStormSnow    WarningType = "暴風雪警報"
	WarningHeavySnow    WarningType = "大雪警報"
	WarningHeavyRain    WarningType = "大雨警報"
	AdvisoryThunder     WarningType = "雷注意報"
	AdvisoryStrongWind  WarningType = "強風注意報"
	AdvisorySnowstorm   WarningType = "風雪注意報"
	AdvisoryDriftingSnw WarningType = "なだれ注意報"
)

// ConfidenceLevel expresses how much supporting signal the prediction had.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ImpactLevel is the coarse weather-impact label shown alongside a prediction.
type ImpactLevel string

const (
	ImpactNone     ImpactLevel = "none"
	ImpactMinor    ImpactLevel = "minor"
	ImpactModerate ImpactLevel = "moderate"
	ImpactSevere   ImpactLevel = "severe"
)

// RecoveryTendency describes how a historical disaster pattern typically
// resolved: service back the next day, slowly over half a day or more, or
// quickly once the weather peak passed.
type RecoveryTendency string

const (
	RecoveryNextDay RecoveryTendency = "next-day"
	RecoverySlow    RecoveryTendency = "slow"
	RecoveryFast    RecoveryTendency = "fast"
)

// SuspensionScale describes the typical blast radius of a historical pattern.
type SuspensionScale string

const (
	ScaleAll     SuspensionScale = "all"
	ScalePartial SuspensionScale = "partial"
	ScaleDelay   SuspensionScale = "delay"
)

// PatternID is the closed set of historical disaster pattern identifiers.
// Score overrides switch on these values exhaustively; free-form string
// comparison is deliberately not supported.
type PatternID string

const (
	PatternRecordIntenseSnow     PatternID = "record-intense-snow"
	PatternDisasterSnow          PatternID = "disaster-snow-sapporo"
	PatternTyphoonRain           PatternID = "typhoon-multi-hit"
	PatternExplosiveCyclogenesis PatternID = "explosive-cyclogenesis"
	PatternHeavyWindLowPressure  PatternID = "heavy-wind-low-pressure"
	PatternSpringStorm           PatternID = "spring-storm"
	PatternNightSnowRemoval      PatternID = "night-snow-removal"
	PatternDeerCollision         PatternID = "autumn-deer-collision"
)
