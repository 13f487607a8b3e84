package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	periodEnd   = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	periodStart = periodEnd.AddDate(0, 0, -30)
)

func TestCompositeScore_WeightClosure(t *testing.T) {
	assert.InEpsilon(t, 1.0, weightSERP+weightNews+weightSocial+weightTrend+weightVolume, 1e-12)

	all10 := models.ScoreBreakdown{SERP: 10, News: 10, Social: 10, Trend: 10, Volume: 10}
	assert.Equal(t, 100.0, compositeScore(all10))

	assert.Equal(t, 0.0, compositeScore(models.ScoreBreakdown{}))
}

func TestSerpSubScore(t *testing.T) {
	keywords := []models.Keyword{
		{ID: "kw1", ClientID: "c1", Active: true},
		{ID: "kw2", ClientID: "c1", Active: true},
	}

	t.Run("No keywords", func(t *testing.T) {
		assert.Equal(t, 5.0, serpSubScore(nil, nil))
	})

	t.Run("Keywords without data", func(t *testing.T) {
		assert.Equal(t, 5.0, serpSubScore(keywords, nil))
	})

	t.Run("Averages across keywords", func(t *testing.T) {
		results := []models.SERPResult{
			{KeywordID: "kw1", Position: intPtr(1)},  // 10.0
			{KeywordID: "kw2", Position: intPtr(10)}, // 8.0
		}
		assert.InDelta(t, 9.0, serpSubScore(keywords, results), 0.001)
	})

	t.Run("Most recent result wins per keyword", func(t *testing.T) {
		// Results arrive most-recent-first; the older position 20 must
		// be ignored.
		results := []models.SERPResult{
			{KeywordID: "kw1", Position: intPtr(1)},
			{KeywordID: "kw1", Position: intPtr(20)},
		}
		assert.Equal(t, 10.0, serpSubScore(keywords[:1], results))
	})

	t.Run("Client content boost", func(t *testing.T) {
		results := []models.SERPResult{
			{KeywordID: "kw1", Position: intPtr(10), IsClientContent: true},
		}
		assert.InDelta(t, 9.6, serpSubScore(keywords[:1], results), 0.001)
	})

	t.Run("Not found scores zero", func(t *testing.T) {
		results := []models.SERPResult{
			{KeywordID: "kw1", Position: nil},
			{KeywordID: "kw2", Position: intPtr(1)},
		}
		assert.InDelta(t, 5.0, serpSubScore(keywords, results), 0.001)
	})
}

func TestNewsSubScore(t *testing.T) {
	t.Run("No mentions", func(t *testing.T) {
		assert.Equal(t, 5.0, newsSubScore(nil))
	})

	t.Run("Confidence weighting", func(t *testing.T) {
		mentions := []models.Mention{
			{SentimentScore: 0.5, SentimentConfidence: 0.8},
			{SentimentScore: -0.5, SentimentConfidence: 0.4},
		}
		// weighted avg = (0.4 - 0.2) / 1.2, remapped onto [0, 10]
		assert.InDelta(t, 5.83, newsSubScore(mentions), 0.001)
	})

	t.Run("Zero-confidence mentions fall back to neutral", func(t *testing.T) {
		mentions := []models.Mention{
			{SentimentScore: -1.0, SentimentConfidence: 0},
		}
		assert.Equal(t, 5.0, newsSubScore(mentions))
	})

	t.Run("Malformed inputs are clamped", func(t *testing.T) {
		mentions := []models.Mention{
			{SentimentScore: 4.0, SentimentConfidence: 3.0},
		}
		assert.Equal(t, 10.0, newsSubScore(mentions))
	})
}

func TestSocialSubScore(t *testing.T) {
	t.Run("No posts", func(t *testing.T) {
		assert.Equal(t, 5.0, socialSubScore(nil))
	})

	t.Run("High engagement dominates", func(t *testing.T) {
		posts := []models.SocialPost{
			{SentimentScore: 1.0, SentimentConfidence: 1.0},              // weight 1
			{SentimentScore: -1.0, SentimentConfidence: 1.0, Likes: 100}, // weight 100
		}
		assert.InDelta(t, 0.1, socialSubScore(posts), 0.001)
	})

	t.Run("Comments and shares weigh more than likes", func(t *testing.T) {
		posts := []models.SocialPost{
			{SentimentScore: 1.0, SentimentConfidence: 1.0, Likes: 6},  // weight 6
			{SentimentScore: -1.0, SentimentConfidence: 1.0, Shares: 2}, // weight 6
		}
		assert.Equal(t, 5.0, socialSubScore(posts))
	})
}

func TestVolumeSubScore(t *testing.T) {
	mention := func(sentiment string) models.Mention {
		return models.Mention{Sentiment: sentiment}
	}

	t.Run("No items", func(t *testing.T) {
		assert.Equal(t, 5.0, volumeSubScore(nil, nil))
	})

	t.Run("All positive clamps at ten", func(t *testing.T) {
		mentions := []models.Mention{mention(models.SentimentPositive), mention(models.SentimentPositive)}
		assert.Equal(t, 10.0, volumeSubScore(mentions, nil))
	})

	t.Run("All negative bottoms out", func(t *testing.T) {
		mentions := []models.Mention{mention(models.SentimentNegative)}
		assert.Equal(t, 0.0, volumeSubScore(mentions, nil))
	})

	t.Run("Even split", func(t *testing.T) {
		mentions := []models.Mention{mention(models.SentimentPositive), mention(models.SentimentNegative)}
		assert.Equal(t, 5.0, volumeSubScore(mentions, nil))
	})

	t.Run("Pools news and social", func(t *testing.T) {
		mentions := []models.Mention{mention(models.SentimentNeutral)}
		posts := []models.SocialPost{{Sentiment: models.SentimentNeutral}}
		// all neutral: 0 + 5 + max(0, 5) = 10
		assert.Equal(t, 10.0, volumeSubScore(mentions, posts))
	})
}

func TestCalculator_NeutralDefaults(t *testing.T) {
	store := storage.NewMemoryStorage()
	calculator := NewCalculator(store)

	score, err := calculator.Calculate(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)

	assert.Equal(t, 5.0, score.Breakdown.SERP)
	assert.Equal(t, 5.0, score.Breakdown.News)
	assert.Equal(t, 5.0, score.Breakdown.Social)
	assert.Equal(t, 5.0, score.Breakdown.Trend)
	assert.Equal(t, 5.0, score.Breakdown.Volume)
	assert.Equal(t, 50.0, score.Score)
}

func TestCalculator_TrendFoldedBackIn(t *testing.T) {
	// With no signal data the provisional composite is 42.5 (four neutral
	// sub-scores at their original weights). A prior score of 22.5 pushes
	// the trend sub-score to its ceiling; 82.5 pushes it to the floor.
	tests := []struct {
		name          string
		previousScore float64
		expectedTrend float64
		expectedFinal float64
	}{
		{"Strong recovery", 22.5, 10.0, 57.5},
		{"Steep decline", 82.5, 0.0, 42.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			store.Scores = append(store.Scores, models.ReputationScore{
				ID:          "prev",
				ClientID:    "client-1",
				PeriodStart: periodStart.AddDate(0, 0, -30),
				PeriodEnd:   periodStart,
				Score:       tt.previousScore,
			})

			calculator := NewCalculator(store)
			score, err := calculator.Calculate(context.Background(), "client-1", periodStart, periodEnd)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedTrend, score.Breakdown.Trend)
			assert.Equal(t, tt.expectedFinal, score.Score)
		})
	}
}

func TestCalculator_Idempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	store.Keywords = append(store.Keywords, models.Keyword{
		ID: "kw1", ClientID: "client-1", Phrase: "acme", Active: true,
	})
	store.SERPResults = append(store.SERPResults, models.SERPResult{
		ID: "r1", KeywordID: "kw1", Position: intPtr(2), CheckedAt: periodEnd.Add(-time.Hour),
	})
	store.Mentions = append(store.Mentions, models.Mention{
		ID: "m1", ClientID: "client-1", Sentiment: models.SentimentPositive,
		SentimentScore: 0.8, SentimentConfidence: 0.9, PublishedAt: periodEnd.Add(-2 * time.Hour),
	})

	calculator := NewCalculator(store)

	first, err := calculator.Calculate(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)
	second, err := calculator.Calculate(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)

	// Identical inputs produce an identical score in a fresh row.
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Breakdown, second.Breakdown)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, store.Scores, 2)
}

// failingStore wraps the in-memory store and breaks one query.
type failingStore struct {
	*storage.MemoryStorage
}

func (f *failingStore) NewsMentions(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Mention, error) {
	return nil, errors.New("storage unavailable")
}

func TestCalculator_StorageErrorPropagates(t *testing.T) {
	store := &failingStore{storage.NewMemoryStorage()}
	calculator := NewCalculator(store)

	_, err := calculator.Calculate(context.Background(), "client-1", periodStart, periodEnd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
	assert.Empty(t, store.Scores, "no score row may be written on failure")
}
