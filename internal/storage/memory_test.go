package storage

import (
	"context"
	"testing"
	"time"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowEnd   = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	windowStart = windowEnd.AddDate(0, 0, -30)
)

func intPtr(v int) *int { return &v }

func TestSerpResults_Windowing(t *testing.T) {
	store := NewMemoryStorage()
	store.SERPResults = []models.SERPResult{
		{ID: "inside", KeywordID: "kw1", Position: intPtr(3), CheckedAt: windowStart.Add(time.Hour)},
		{ID: "at-start", KeywordID: "kw1", Position: intPtr(4), CheckedAt: windowStart},
		{ID: "at-end", KeywordID: "kw1", Position: intPtr(5), CheckedAt: windowEnd},
		{ID: "before", KeywordID: "kw1", Position: intPtr(6), CheckedAt: windowStart.Add(-time.Hour)},
		{ID: "other-keyword", KeywordID: "kw2", Position: intPtr(7), CheckedAt: windowStart.Add(time.Hour)},
	}

	results, err := store.SerpResults(context.Background(), []string{"kw1"}, windowStart, windowEnd)
	require.NoError(t, err)

	// The window is inclusive of its start and exclusive of its end.
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.ElementsMatch(t, []string{"inside", "at-start"}, ids)
}

func TestLatestSerpResultsByKeyword_Ordering(t *testing.T) {
	store := NewMemoryStorage()
	store.SERPResults = []models.SERPResult{
		{ID: "oldest", KeywordID: "kw1", CheckedAt: windowStart.Add(time.Hour)},
		{ID: "newest", KeywordID: "kw1", CheckedAt: windowEnd.Add(-time.Hour)},
		{ID: "middle", KeywordID: "kw1", CheckedAt: windowStart.AddDate(0, 0, 15)},
	}

	results, err := store.LatestSerpResultsByKeyword(context.Background(), []string{"kw1"}, windowStart, windowEnd)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "newest", results[0].ID)
	assert.Equal(t, "middle", results[1].ID)
	assert.Equal(t, "oldest", results[2].ID)
}

func TestLatestScoreBefore(t *testing.T) {
	store := NewMemoryStorage()
	store.Scores = []models.ReputationScore{
		{ID: "old", ClientID: "c1", PeriodEnd: windowEnd.AddDate(0, 0, -60), Score: 61},
		{ID: "recent", ClientID: "c1", PeriodEnd: windowEnd.AddDate(0, 0, -30), Score: 72},
		{ID: "future", ClientID: "c1", PeriodEnd: windowEnd.AddDate(0, 0, 30), Score: 80},
		{ID: "other", ClientID: "c2", PeriodEnd: windowEnd.AddDate(0, 0, -1), Score: 90},
	}

	t.Run("Picks latest at or before the cutoff", func(t *testing.T) {
		score, err := store.LatestScoreBefore(context.Background(), "c1", windowEnd)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, "recent", score.ID)
	})

	t.Run("Cutoff is inclusive", func(t *testing.T) {
		score, err := store.LatestScoreBefore(context.Background(), "c1", windowEnd.AddDate(0, 0, -60))
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, "old", score.ID)
	})

	t.Run("Nil when no history", func(t *testing.T) {
		score, err := store.LatestScoreBefore(context.Background(), "c3", windowEnd)
		require.NoError(t, err)
		assert.Nil(t, score)
	})
}

func TestRecentAlerts_FiltersOnKeyAndTime(t *testing.T) {
	now := time.Now().UTC()
	store := NewMemoryStorage()
	store.Alerts = []models.Alert{
		{ID: "match", ClientID: "c1", Type: models.AlertScoreDrop, Severity: models.SeverityHigh, CreatedAt: now.Add(-time.Hour)},
		{ID: "too-old", ClientID: "c1", Type: models.AlertScoreDrop, Severity: models.SeverityHigh, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "other-severity", ClientID: "c1", Type: models.AlertScoreDrop, Severity: models.SeverityMedium, CreatedAt: now.Add(-time.Hour)},
		{ID: "other-type", ClientID: "c1", Type: models.AlertCriticalEvent, Severity: models.SeverityHigh, CreatedAt: now.Add(-time.Hour)},
	}

	alerts, err := store.RecentAlerts(context.Background(), "c1", models.AlertScoreDrop, models.SeverityHigh, now.Add(-24*time.Hour))
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "match", alerts[0].ID)
}

func TestAlertLifecycle(t *testing.T) {
	store := NewMemoryStorage()

	inserted, err := store.InsertAlert(context.Background(), models.Alert{
		ID: "a1", ClientID: "c1", Type: models.AlertScoreDrop,
		Severity: models.SeverityHigh, Status: models.StatusActive,
	})
	require.NoError(t, err)

	updated, err := store.UpdateAlertStatus(context.Background(), inserted.ID, models.StatusAcknowledged)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, updated.Status)

	require.NoError(t, store.MarkAlertEmailSent(context.Background(), inserted.ID))

	fetched, err := store.GetAlert(context.Background(), inserted.ID)
	require.NoError(t, err)
	assert.True(t, fetched.EmailSent)
	assert.Equal(t, models.StatusAcknowledged, fetched.Status)

	_, err = store.GetAlert(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.UpdateAlertStatus(context.Background(), "missing", models.StatusResolved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAlertsForClient_NewestFirst(t *testing.T) {
	now := time.Now().UTC()
	store := NewMemoryStorage()
	store.Alerts = []models.Alert{
		{ID: "older", ClientID: "c1", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "newer", ClientID: "c1", CreatedAt: now.Add(-time.Hour)},
		{ID: "foreign", ClientID: "c2", CreatedAt: now},
	}

	alerts, err := store.AlertsForClient(context.Background(), "c1")
	require.NoError(t, err)

	require.Len(t, alerts, 2)
	assert.Equal(t, "newer", alerts[0].ID)
	assert.Equal(t, "older", alerts[1].ID)
}
