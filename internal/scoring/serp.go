package scoring

import "math"

// maxTrackedPosition is the deepest search position the trackers record.
// Anything beyond it is reported as not found.
const maxTrackedPosition = 100

// clientContentBoost rewards rankings that point at the client's own pages.
const clientContentBoost = 1.2

// positionScore maps a search position onto the 0-10 SERP scale. A nil
// position means the tracked page was not found and scores 0.
func positionScore(position *int, clientContent bool) float64 {
	score := rawPositionScore(position)
	if clientContent {
		score = math.Min(score*clientContentBoost, 10)
	}
	return round2(score)
}

func rawPositionScore(position *int) float64 {
	if position == nil {
		return 0
	}

	pos := *position
	switch {
	case pos <= 0:
		// Positions are 1-based; anything else is malformed input.
		return 0
	case pos <= 3:
		return 10
	case pos <= 10:
		// Linear from 9.5 at position 4 down to 8.0 at position 10.
		return 9.5 - float64(pos-4)*0.25
	case pos <= 20:
		// Linear from 7.5 at position 11 down to 5.0 at position 20.
		return 7.5 - float64(pos-11)*(2.5/9)
	case pos <= maxTrackedPosition:
		return math.Max(0, 4.5-float64(pos-20)*0.1)
	default:
		return 0
	}
}
