// Package routes holds the static per-route vulnerability reference data:
// wind and snowfall regulation thresholds, a global susceptibility multiplier,
// deer-collision flags, and wind bearings the route is sheltered from.
// The table is immutable and loaded once at process start.
package routes

import "railwatch/internal/types"

// Table maps route IDs to their vulnerability records.
var Table = map[string]types.RouteVulnerability{
	"jr-hokkaido.hakodate-main": {
		WindThreshold:      23,
		SnowThreshold:      5,
		VulnerabilityScore: 1.0,
		Description:        "主要幹線、比較的安定",
	},
	"jr-hokkaido.chitose": {
		WindThreshold:      20,
		SnowThreshold:      4,
		VulnerabilityScore: 1.6,
		Description:        "空港連絡線、優先的に運行維持",
		// 北風は線路に並行するため影響が比較的少ない
		SafeWindDirections: []types.WindRange{{Min: 350, Max: 360}, {Min: 0, Max: 10}},
	},
	"jr-hokkaido.gakuentoshi": {
		WindThreshold:      15,
		SnowThreshold:      4,
		VulnerabilityScore: 1.1,
		Description:        "一部単線区間あり",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.muroran": {
		WindThreshold:      16,
		SnowThreshold:      4,
		VulnerabilityScore: 1.3,
		Description:        "海沿い区間で強風の影響受けやすい",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.sekihoku": {
		WindThreshold:      23,
		SnowThreshold:      3,
		VulnerabilityScore: 1.6,
		Description:        "山間部多く積雪・強風に弱い",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.soya": {
		WindThreshold:      23,
		SnowThreshold:      3,
		VulnerabilityScore: 1.8,
		Description:        "最北端路線、厳寒期は運休多い",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.nemuro": {
		WindThreshold:      23,
		SnowThreshold:      3,
		VulnerabilityScore: 1.5,
		Description:        "長距離路線、部分運休が発生しやすい",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.senmo": {
		WindThreshold:      14,
		SnowThreshold:      3,
		VulnerabilityScore: 1.6,
		Description:        "観光路線、冬季は運休しやすい",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.hidaka": {
		WindThreshold:      16,
		SnowThreshold:      3,
		VulnerabilityScore: 1.4,
		Description:        "海沿い区間あり",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.rumoi": {
		WindThreshold:      14,
		SnowThreshold:      3,
		VulnerabilityScore: 1.6,
		Description:        "海岸線に近い・強風・積雪",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.sekisho": {
		WindThreshold:      16,
		SnowThreshold:      4,
		VulnerabilityScore: 1.5,
		Description:        "山間部・峠越え区間（強風・積雪）",
		HasDeerRisk:        true,
	},
	"jr-hokkaido.furano": {
		WindThreshold:      16,
		SnowThreshold:      3,
		VulnerabilityScore: 1.3,
		Description:        "内陸部、積雪の影響",
		HasDeerRisk:        true,
	},
}

// Default is the documented fallback for routes not present in the table.
var Default = types.RouteVulnerability{
	WindThreshold:      15,
	SnowThreshold:      5,
	VulnerabilityScore: 1.0,
}

// Lookup returns the vulnerability record for the route, falling back to
// Default for unknown route IDs.
func Lookup(routeID string) types.RouteVulnerability {
	if v, ok := Table[routeID]; ok {
		return v
	}
	return Default
}

// IsSafeWindDirection reports whether the given bearing falls within one of
// the route's sheltered ranges. A nil bearing is never safe.
func IsSafeWindDirection(direction *float64, ranges []types.WindRange) bool {
	if direction == nil || len(ranges) == 0 {
		return false
	}
	for _, r := range ranges {
		if *direction >= r.Min && *direction <= r.Max {
			return true
		}
	}
	return false
}
