package engine

import (
	"fmt"
	"math"
	"time"

	"railwatch/internal/types"
)

type officialStrategy struct{}

func (officialStrategy) Name() string { return "official" }

// Evaluate converts the operator's coarse status into a score, attenuated by
// how stale the report is. The live status only speaks for today, and a
// suspension whose announced resumption time has already passed contributes
// nothing.
func (officialStrategy) Evaluate(ctx *Context) Result {
	var res Result
	st := ctx.Input.Official
	if st == nil {
		return res
	}

	if ctx.Input.TargetDate != jstDate(ctx.Now) {
		return res
	}

	if st.ResumptionTime != nil {
		target := parseTargetDateTime(ctx.Input.TargetDate, ctx.Input.TargetTime)
		if !target.IsZero() && target.After(*st.ResumptionTime) {
			return res
		}
	}

	if st.Status == types.StateNormal || st.Status == types.StateUnknown {
		return res
	}

	base := statusWeight(st.Status)
	recency := recencyWeight(st.UpdatedAt, ctx.Now)
	score := math.Round(base * recency)

	text := st.StatusText
	if text == "" {
		text = "運行情報で遅れ・運休"
	}
	res.add(score, fmt.Sprintf("【公式】%s", text), 0)
	return res
}

// statusWeight is the fixed base score per reported status.
func statusWeight(s types.OperationState) float64 {
	switch s {
	case types.StateCancelled:
		return 100
	case types.StateSuspended:
		return 80
	case types.StateDelay:
		return 15
	default:
		return 0
	}
}

// recencyWeight decays the influence of a status report as it ages, so a
// stale "suspended" reading does not force risk high forever. A zero
// timestamp is treated as moderately stale.
func recencyWeight(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.5
	}
	age := now.Sub(updatedAt)
	switch {
	case age <= 5*time.Minute:
		return 1.0
	case age <= 15*time.Minute:
		return 0.9
	case age <= 30*time.Minute:
		return 0.75
	case age <= time.Hour:
		return 0.5
	default:
		return 0.3
	}
}
