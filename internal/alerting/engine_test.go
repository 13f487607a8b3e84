package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotificationService is a mock implementation of NotificationInterface
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(report *models.ReputationReport) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockNotificationService) SendImmediateAlert(alert *models.Alert) error {
	args := m.Called(alert)
	return args.Error(0)
}

func criticalEventStore() *storage.MemoryStorage {
	store := storage.NewMemoryStorage()
	store.Scores = append(store.Scores, models.ReputationScore{
		ID: "s1", ClientID: "client-1", PeriodStart: periodStart, PeriodEnd: periodEnd, Score: 25,
	})
	for i := 0; i < 6; i++ {
		store.Mentions = append(store.Mentions, models.Mention{
			ClientID:    "client-1",
			Sentiment:   models.SentimentNegative,
			PublishedAt: periodEnd.Add(-time.Hour),
		})
	}
	return store
}

func TestGenerateAlerts_CriticalDoubleFire(t *testing.T) {
	store := criticalEventStore()
	notifier := new(MockNotificationService)
	notifier.On("SendImmediateAlert", mock.AnythingOfType("*models.Alert")).Return(nil)

	engine := NewEngine(nil, store, notifier)
	alerts, err := engine.GenerateAlertsForClient(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)

	// Both critical-event triggers share type and severity but carry
	// distinct titles, so neither dedup stage may collapse them.
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, models.AlertCriticalEvent, a.Type)
		assert.Equal(t, models.SeverityCritical, a.Severity)
		assert.Equal(t, models.StatusActive, a.Status)
		assert.True(t, a.EmailSent, "successful immediate delivery must be recorded")
		assert.NotEmpty(t, a.ID)
	}
	assert.NotEqual(t, alerts[0].Title, alerts[1].Title)
	assert.Len(t, store.Alerts, 2)

	notifier.AssertNumberOfCalls(t, "SendImmediateAlert", 2)
}

func TestGenerateAlerts_PersistedDedupIdempotent(t *testing.T) {
	store := criticalEventStore()
	notifier := new(MockNotificationService)
	notifier.On("SendImmediateAlert", mock.AnythingOfType("*models.Alert")).Return(nil)

	engine := NewEngine(nil, store, notifier)

	first, err := engine.GenerateAlertsForClient(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := engine.GenerateAlertsForClient(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)
	assert.Empty(t, second, "a rerun inside the dedup window produces nothing new")
	assert.Len(t, store.Alerts, 2)
}

func TestPersistAlerts_InRunDedup(t *testing.T) {
	store := storage.NewMemoryStorage()
	engine := NewEngine(nil, store, nil)

	candidate := models.Alert{
		Type:     models.AlertNegativeContent,
		Severity: models.SeverityMedium,
		Title:    "Negative result at position 8: complaint thread",
	}
	other := candidate
	other.Title = "Negative result at position 9: review roundup"

	persisted, err := engine.persistAlerts(context.Background(), "client-1", []models.Alert{candidate, candidate, other})
	require.NoError(t, err)

	// The repeated candidate collapses; the distinct title survives even
	// though type and severity match.
	assert.Len(t, persisted, 2)
	assert.Len(t, store.Alerts, 2)
}

func TestGenerateAlerts_DeliveryFailureNonFatal(t *testing.T) {
	store := criticalEventStore()
	notifier := new(MockNotificationService)
	notifier.On("SendImmediateAlert", mock.AnythingOfType("*models.Alert")).Return(errors.New("webhook down"))

	engine := NewEngine(nil, store, notifier)
	alerts, err := engine.GenerateAlertsForClient(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)

	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.False(t, a.EmailSent, "delivery failure must not mark the alert as sent")
	}
	assert.Len(t, store.Alerts, 2, "alerts stay persisted when delivery fails")
}

func TestGenerateAlerts_NonCriticalSkipsImmediateDelivery(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedScorePair(store, "client-1", 80, 76.5)

	notifier := new(MockNotificationService)
	engine := NewEngine(nil, store, notifier)

	alerts, err := engine.GenerateAlertsForClient(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityMedium, alerts[0].Severity)
	assert.False(t, alerts[0].EmailSent)
	notifier.AssertNotCalled(t, "SendImmediateAlert", mock.Anything)
}

func TestGenerateAlerts_DetectorFailureIsPartial(t *testing.T) {
	store := &mentionFailingStore{storage.NewMemoryStorage()}
	store.Scores = append(store.Scores, models.ReputationScore{
		ID: "s1", ClientID: "client-1", PeriodStart: periodStart, PeriodEnd: periodEnd, Score: 25,
	})

	notifier := new(MockNotificationService)
	notifier.On("SendImmediateAlert", mock.AnythingOfType("*models.Alert")).Return(nil)

	engine := NewEngine(nil, store, notifier)
	alerts, err := engine.GenerateAlertsForClient(context.Background(), "client-1", periodStart, periodEnd)
	require.NoError(t, err, "a failing detector must not fail the run")

	require.Len(t, alerts, 1, "candidates gathered before the failure still count")
	assert.Equal(t, models.AlertCriticalEvent, alerts[0].Type)
}
