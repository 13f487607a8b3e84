package scoring

import (
	"testing"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCalculateTrend(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected models.TrendDirection
	}{
		{"Clear improvement", 75.0, 60.0, models.TrendUp},
		{"Clear decline", 60.0, 75.0, models.TrendDown},
		{"No movement", 50.0, 50.0, models.TrendStable},
		{"Exactly +2 is stable", 52.0, 50.0, models.TrendStable},
		{"Exactly -2 is stable", 48.0, 50.0, models.TrendStable},
		{"Just above +2", 52.01, 50.0, models.TrendUp},
		{"Just below -2", 47.99, 50.0, models.TrendDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateTrend(tt.current, tt.previous))
		})
	}
}
