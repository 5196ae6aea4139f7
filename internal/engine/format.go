package engine

import (
	"regexp"
	"sort"
	"strings"

	"railwatch/internal/types"
)

// statusFromProbability maps the clamped probability to a state label via
// fixed descending thresholds.
func statusFromProbability(prob int) types.OperationState {
	switch {
	case prob >= statusCancelledThreshold:
		return types.StateCancelled
	case prob >= statusSuspendedThreshold:
		return types.StateSuspended
	case prob >= statusDelayedThreshold:
		return types.StateDelay
	default:
		return types.StateNormal
	}
}

// confidenceLevel grades how much supporting signal the prediction had. Live
// operator or rider data with multiple factors is the strongest backing.
func confidenceLevel(prob, factorCount int, hasRealData bool) types.ConfidenceLevel {
	if hasRealData && factorCount >= realtimeDataMinFactors {
		return types.ConfidenceHigh
	}
	if factorCount >= highConfidenceMinFactors || prob >= highConfidenceMinProbability {
		return types.ConfidenceHigh
	}
	if factorCount >= mediumConfidenceMinFactors || prob >= mediumConfidenceMinProbability {
		return types.ConfidenceMedium
	}
	return types.ConfidenceLow
}

func weatherImpact(prob int) types.ImpactLevel {
	switch {
	case prob >= impactSevereThreshold:
		return types.ImpactSevere
	case prob >= impactModerateThreshold:
		return types.ImpactModerate
	case prob >= impactMinorThreshold:
		return types.ImpactMinor
	default:
		return types.ImpactNone
	}
}

// sortAndCapReasons performs the final isolated pass over all collected
// reasons: stable sort by priority, dedupe by message, cap the display count.
func sortAndCapReasons(reasons []types.Reason) types.Reasons {
	sorted := make([]types.Reason, len(reasons))
	copy(sorted, reasons)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	seen := make(map[string]struct{}, len(sorted))
	out := make(types.Reasons, 0, maxDisplayReasons)
	for _, r := range sorted {
		if _, dup := seen[r.Message]; dup {
			continue
		}
		seen[r.Message] = struct{}{}
		out = append(out, r)
		if len(out) == maxDisplayReasons {
			break
		}
	}
	return out
}

// otherRouteNames are the line names that appear in the operator's combined
// status feed. Lines about one of them (and not about the target route) are
// dropped from the displayed official text.
var otherRouteNames = []string{
	"千歳線", "函館線", "函館本線", "学園都市線", "札沼線",
	"室蘭線", "室蘭本線", "石勝線", "根室線", "根室本線",
	"宗谷線", "宗谷本線", "石北線", "石北本線", "釧網線", "釧網本線",
	"富良野線", "日高線", "日高本線",
}

var brTagRe = regexp.MustCompile(`(?i)<BR\s*/?>`)

// regionSuffixes are display qualifiers appended to route names in the UI;
// they never appear in the operator feed.
var regionSuffixes = []string{"（道南）", "（道北）", "（道東）", "（道央）"}

// FilterOfficialText keeps only the clauses of a multi-route status feed that
// concern the target route. Network-wide phrases (全区間, 札幌圏, 全道, 特急)
// always survive.
func FilterOfficialText(text, routeName string) string {
	if text == "" || routeName == "" {
		return text
	}

	name := routeName
	for _, suf := range regionSuffixes {
		name = strings.ReplaceAll(name, suf, "")
	}
	targetKeywords := strings.Split(name, "・")

	var otherRoutes []string
	for _, r := range otherRouteNames {
		related := false
		for _, k := range targetKeywords {
			if strings.Contains(r, k) || strings.Contains(k, r) {
				related = true
				break
			}
		}
		if !related {
			otherRoutes = append(otherRoutes, r)
		}
	}

	sanitized := brTagRe.ReplaceAllString(text, "\n")
	var kept []string
	for _, line := range strings.FieldsFunc(sanitized, func(r rune) bool { return r == '\n' || r == '。' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "全区間") || strings.Contains(line, "札幌圏") ||
			strings.Contains(line, "全道") || strings.Contains(line, "特急") {
			kept = append(kept, line)
			continue
		}

		hasOther, hasTarget := false, false
		for _, r := range otherRoutes {
			if strings.Contains(line, r) {
				hasOther = true
				break
			}
		}
		for _, k := range targetKeywords {
			if strings.Contains(line, k) {
				hasTarget = true
				break
			}
		}
		if hasOther && !hasTarget {
			continue
		}
		kept = append(kept, line)
	}

	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "。") + "。"
}
