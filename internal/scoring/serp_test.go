package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestPositionScore_Curve(t *testing.T) {
	tests := []struct {
		name     string
		position *int
		expected float64
	}{
		{"Position 1", intPtr(1), 10.0},
		{"Position 3", intPtr(3), 10.0},
		{"Position 4", intPtr(4), 9.5},
		{"Position 7", intPtr(7), 8.75},
		{"Position 10", intPtr(10), 8.0},
		{"Position 11", intPtr(11), 7.5},
		{"Position 20", intPtr(20), 5.0},
		{"Position 21", intPtr(21), 4.4},
		{"Position 30", intPtr(30), 3.5},
		{"Position 65", intPtr(65), 0.0},
		{"Position 100", intPtr(100), 0.0},
		{"Not found", nil, 0.0},
		{"Beyond tracked depth", intPtr(150), 0.0},
		{"Malformed zero position", intPtr(0), 0.0},
		{"Malformed negative position", intPtr(-3), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, positionScore(tt.position, false), 0.001)
		})
	}
}

func TestPositionScore_Monotonic(t *testing.T) {
	prev := positionScore(intPtr(1), false)
	for pos := 2; pos <= 100; pos++ {
		score := positionScore(intPtr(pos), false)
		assert.LessOrEqual(t, score, prev, "score must not increase from position %d to %d", pos-1, pos)
		prev = score
	}
}

func TestPositionScore_ClientContentBoost(t *testing.T) {
	// The multiplier raises any position's score relative to non-client
	// content at the same position, but never above 10.
	for pos := 1; pos <= 100; pos++ {
		plain := positionScore(intPtr(pos), false)
		boosted := positionScore(intPtr(pos), true)
		assert.GreaterOrEqual(t, boosted, plain)
		assert.LessOrEqual(t, boosted, 10.0)
	}

	assert.Equal(t, 10.0, positionScore(intPtr(1), true))
	assert.InDelta(t, 9.6, positionScore(intPtr(10), true), 0.001) // 8.0 * 1.2
}
