package engine

import (
	"fmt"
	"time"

	"railwatch/internal/types"
)

// preparedInput is the normalized form of a request: JST "today", the
// effective calculation time after the non-operating-hour shift, and whether
// the request is effectively live.
type preparedInput struct {
	EffectiveTargetTime string
	IsNonOperatingHour  bool
	TodayJST            string
	IsNearRealTime      bool
}

// prepareInput resolves timezone and edge-hour concerns before scoring. A
// query in the 00:00-05:00 window is shifted to the first train at 06:00
// because no service runs to predict against.
func prepareInput(input *types.PredictionInput, now time.Time) preparedInput {
	out := preparedInput{TodayJST: jstDate(now)}

	out.EffectiveTargetTime = input.TargetTime
	if out.EffectiveTargetTime == "" {
		out.EffectiveTargetTime = "00:00"
	}
	if h := parseHour(out.EffectiveTargetTime, 0); h >= 0 && h < nonOperatingEndHour {
		out.EffectiveTargetTime = fmt.Sprintf("%02d:00", firstTrainHour)
		out.IsNonOperatingHour = true
	}

	target := parseTargetDateTime(input.TargetDate, input.TargetTime)
	if !target.IsZero() {
		diff := target.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		out.IsNearRealTime = diff <= nearRealTimeWindow
	}

	return out
}
