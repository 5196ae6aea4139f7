package engine

import (
	"fmt"
	"strings"
	"time"

	"railwatch/internal/types"
)

// BaseStatus is the floor and cap the official report places on the
// probability, plus the flags derived from it. It is the single source of
// truth for probability constraints.
type BaseStatus struct {
	Status                types.OperationState
	IsOfficialSuspended   bool
	IsPostResumptionChaos bool
	IsPartialSuspension   bool
	PartialSuspensionText string
	MinProbability        int
	MaxProbability        int
	OverrideReason        string
}

// partialKeywords mark reduced or thinned service short of a full stoppage.
var partialKeywords = []string{
	"一部の列車", "部分運休", "本数を減ら", "間引き", "一部区間",
	"区間運休", "一部運休", "減便", "列車を一部",
}

// determineBaseStatus turns the operator's report into probability bounds for
// the given target instant. The chaos window after an announced resumption
// keeps risk elevated for a while; deep ground snow extends it.
func determineBaseStatus(official *types.OfficialStatus, targetDate, targetTime string, snowDepth float64) BaseStatus {
	if official == nil {
		return BaseStatus{Status: types.StateUnknown, MinProbability: 0, MaxProbability: 100}
	}

	target := parseTargetDateTime(targetDate, targetTime)
	rawText := official.Text()

	// Partial suspension wording outranks the coarse status: a technically
	// "delay" report with thinned-service text is close to a suspension.
	partial := official.Status == types.StatePartial
	for _, k := range partialKeywords {
		if strings.Contains(rawText, k) {
			partial = true
			break
		}
	}
	if partial {
		return BaseStatus{
			Status:                types.StateDelay,
			IsPartialSuspension:   true,
			PartialSuspensionText: rawText,
			MinProbability:        60,
			MaxProbability:        95,
			OverrideReason:        "【公式】一部の列車で運休・遅延が発生しています",
		}
	}

	suspended := official.Status == types.StateSuspended || official.Status == types.StateCancelled ||
		strings.Contains(rawText, "運休") || strings.Contains(rawText, "見合わせ")

	if suspended {
		if official.ResumptionTime != nil && !target.IsZero() {
			resumption := official.ResumptionTime.In(jst)
			window := chaosWindow
			if snowDepth >= chaosDeepSnowDepth {
				window = chaosWindowDeepSnow
			}
			chaosEnd := resumption.Add(window)

			if !target.Before(resumption) && !target.After(chaosEnd) {
				return BaseStatus{
					Status:                types.StateDelay,
					IsPostResumptionChaos: true,
					MinProbability:        60,
					MaxProbability:        100,
					OverrideReason: fmt.Sprintf("【公式】運転再開直後（%d時間以内）のため、大規模なダイヤ乱れが予想されます",
						int(window/time.Hour)),
				}
			}
			if target.After(resumption) {
				// Residual disruption after the chaos window has closed:
				// still a delay risk, never a full re-suspension call.
				return BaseStatus{
					Status:         types.StateDelay,
					MinProbability: 20,
					MaxProbability: 60,
					OverrideReason: fmt.Sprintf("【公式】運転再開（%s頃再開）後の遅延・ダイヤ乱れの可能性があります",
						resumption.Format("15:04")),
				}
			}
		}

		reason := "【公式】現在、運転を見合わせています"
		if official.ResumptionTime != nil {
			reason = fmt.Sprintf("【公式】運転見合わせ中（%s頃再開見込み）", official.ResumptionTime.In(jst).Format("15:04"))
		}
		return BaseStatus{
			Status:              types.StateSuspended,
			IsOfficialSuspended: true,
			MinProbability:      100,
			MaxProbability:      100,
			OverrideReason:      reason,
		}
	}

	switch official.Status {
	case types.StateDelay:
		return BaseStatus{
			Status:         types.StateDelay,
			MinProbability: 40,
			MaxProbability: 75,
			OverrideReason: "【公式】列車に遅れが生じています",
		}
	case types.StateNormal:
		// A normal report caps weather-only risk but sets no floor.
		return BaseStatus{Status: types.StateNormal, MinProbability: 0, MaxProbability: 75}
	}

	return BaseStatus{Status: types.StateUnknown, MinProbability: 0, MaxProbability: 100}
}

// apply clamps a probability into the base status bounds.
func (b BaseStatus) apply(probability int) int {
	if probability < b.MinProbability {
		probability = b.MinProbability
	}
	if probability > b.MaxProbability {
		probability = b.MaxProbability
	}
	return probability
}
