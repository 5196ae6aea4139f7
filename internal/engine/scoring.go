package engine

import (
	"math"

	"railwatch/internal/types"
)

// AccuracyScore grades a past prediction against the observed outcome on a
// 0-100 scale. Used by the verification batch to track model quality over
// time.
func AccuracyScore(probability int, actual types.OperationState) int {
	p := float64(probability)
	var score float64

	switch actual {
	case types.StateSuspended, types.StateCancelled, types.StatePartial:
		// The route did stop: high predictions score well, confident
		// misses below 30 are punished hard.
		switch {
		case p >= 50:
			score = 100
		case p >= 30:
			score = 70 + (p-30)*1.5
		default:
			score = 20
		}
	case types.StateNormal:
		switch {
		case p <= 20:
			score = 100
		case p <= 50:
			score = 100 - (p-20)*2
		default:
			score = 10
		}
	case types.StateDelay:
		// A delay is the middle outcome: mid-band predictions fit best,
		// but an over-prediction is not a total miss.
		switch {
		case p >= 30 && p <= 70:
			score = 100
		case p < 30:
			score = 50 + p
		default:
			score = 80
		}
	default:
		score = 50
	}

	return int(math.Min(100, math.Max(0, math.Round(score))))
}
