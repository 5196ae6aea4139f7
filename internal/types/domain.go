package types

import "time"

// Warning is an active weather warning or advisory attached to a snapshot.
type Warning struct {
	Type     WarningType `json:"type"`
	Area     string      `json:"area,omitempty"`
	IssuedAt time.Time   `json:"issued_at,omitempty"`
}

// WeatherSnapshot contains the forecast values for one route location at one
// hour. Numeric fields are zero when the provider omits them; the engine
// treats zero as "no signal" rather than failing.
type WeatherSnapshot struct {
	Date          string  `json:"date"`                  // YYYY-MM-DD
	TargetTime    string  `json:"target_time,omitempty"` // HH:MM
	TemperatureC  float64 `json:"temperature_c"`
	TempMaxC      float64 `json:"temp_max_c"`
	TempMinC      float64 `json:"temp_min_c"`
	Precipitation float64 `json:"precipitation_mm"`
	WindSpeed     float64 `json:"wind_speed_ms"`
	WindGust      float64 `json:"wind_gust_ms"`
	// WindDirection is nil when the provider did not report a bearing.
	WindDirection   *float64  `json:"wind_direction_deg,omitempty"`
	Snowfall        float64   `json:"snowfall_cmh"`
	SnowDepth       float64   `json:"snow_depth_cm"`
	SnowDepthChange float64   `json:"snow_depth_change_cmh"`
	PressureHPa     float64   `json:"pressure_hpa"`
	Warnings        []Warning `json:"warnings,omitempty"`
	// SurroundingHours is the ordered hourly series spanning roughly ±12h
	// around the snapshot, used for trend analysis and resumption search.
	SurroundingHours []WeatherSnapshot `json:"surrounding_hours,omitempty"`
}

// HasWarning reports whether a warning of the given type is active.
func (w *WeatherSnapshot) HasWarning(t WarningType) bool {
	if w == nil {
		return false
	}
	for _, warn := range w.Warnings {
		if warn.Type == t {
			return true
		}
	}
	return false
}

// WindRange is an inclusive [Min,Max] bearing range in degrees.
type WindRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RouteVulnerability holds the static per-route disruption thresholds.
// Records are immutable reference data loaded once at process start.
type RouteVulnerability struct {
	WindThreshold      float64     `json:"wind_threshold_ms"`
	SnowThreshold      float64     `json:"snow_threshold_cmh"`
	VulnerabilityScore float64     `json:"vulnerability_score"`
	Description        string      `json:"description,omitempty"`
	HasDeerRisk        bool        `json:"has_deer_risk"`
	SafeWindDirections []WindRange `json:"safe_wind_directions,omitempty"`
}

// OfficialStatus is the operator's self-reported status for one route.
// Produced by the status-feed collaborator; the engine never mutates it.
type OfficialStatus struct {
	RouteID        string         `json:"route_id"`
	Status         OperationState `json:"status"`
	StatusText     string         `json:"status_text,omitempty"`
	RawText        string         `json:"raw_text,omitempty"`
	ResumptionTime *time.Time     `json:"resumption_time,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Text returns the richest available status text.
func (s *OfficialStatus) Text() string {
	if s == nil {
		return ""
	}
	if s.RawText != "" {
		return s.RawText
	}
	return s.StatusText
}

// ReportCounts breaks a crowdsourced window down by report type.
type ReportCounts struct {
	Stopped int `json:"stopped"`
	Delayed int `json:"delayed"`
	Crowded int `json:"crowded"`
	Resumed int `json:"resumed"`
	Total   int `json:"total"`
}

// CrowdsourcedStatus is the already-aggregated rider report consensus for one
// route over a recent window.
type CrowdsourcedStatus struct {
	RouteID     string         `json:"route_id"`
	ReportCount int            `json:"report_count"`
	Consensus   ConsensusState `json:"consensus"`
	Counts      ReportCounts   `json:"counts"`
}

// PredictionInput is the sole argument to the engine. All fields must be
// resolved before the call; the core performs no fetching of its own.
type PredictionInput struct {
	RouteID    string           `json:"route_id"`
	RouteName  string           `json:"route_name"`
	TargetDate string           `json:"target_date"` // YYYY-MM-DD
	TargetTime string           `json:"target_time"` // HH:MM
	Weather    *WeatherSnapshot `json:"weather,omitempty"`
	Official   *OfficialStatus  `json:"official,omitempty"`
	Crowd      *CrowdsourcedStatus `json:"crowd,omitempty"`
	// HistoricalMatchID is an optional precomputed pattern match. When empty
	// the engine runs its own matcher over the weather snapshot.
	HistoricalMatchID PatternID `json:"historical_match_id,omitempty"`
}

// Reason is one human-readable contribution to a prediction, tagged with the
// priority used for the final stable sort (lower sorts first).
type Reason struct {
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// PredictionResult is the outcome of one evaluation. It is created fresh per
// call and never mutated after return.
type PredictionResult struct {
	RouteID     string          `json:"route_id"`
	TargetDate  string          `json:"target_date"`
	TargetTime  string          `json:"target_time"`
	Probability int             `json:"probability"`
	Status      OperationState  `json:"status"`
	Confidence  ConfidenceLevel `json:"confidence"`
	Reasons     Reasons         `json:"reasons"`
	Impact      ImpactLevel     `json:"weather_impact"`

	EstimatedRecoveryTime  string  `json:"estimated_recovery_time,omitempty"` // HH:MM or label
	EstimatedRecoveryHours float64 `json:"estimated_recovery_hours,omitempty"`
	RecoveryRecommendation string  `json:"recovery_recommendation,omitempty"`
	SuspensionReason       string  `json:"suspension_reason,omitempty"`

	IsOfficialOverride    bool `json:"is_official_override"`
	IsPartialSuspension   bool `json:"is_partial_suspension"`
	IsPostResumptionChaos bool `json:"is_post_resumption_chaos"`
	IsCurrentlySuspended  bool `json:"is_currently_suspended"`
}
