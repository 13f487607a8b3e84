package scoring

import "github.com/repwatch/repwatch/internal/models"

// trendDeadband is the score movement, in composite points, still treated
// as noise rather than a real change.
const trendDeadband = 2.0

// CalculateTrend labels the movement between two composite scores. The
// boundary is exclusive: a movement of exactly ±2 points is stable.
func CalculateTrend(current, previous float64) models.TrendDirection {
	diff := current - previous
	switch {
	case diff > trendDeadband:
		return models.TrendUp
	case diff < -trendDeadband:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}
