package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/notifications"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/sirupsen/logrus"
)

// Engine runs the adverse-event detectors for a client and turns their
// candidates into persisted, deduplicated alerts.
type Engine struct {
	storage          storage.StorageInterface
	notifier         notifications.NotificationInterface
	negativeKeywords []string
	dedupWindow      time.Duration
	minEngagement    int
}

// NewEngine creates a new alert engine
func NewEngine(cfg *config.Config, store storage.StorageInterface, notifier notifications.NotificationInterface) *Engine {
	engine := &Engine{
		storage:          store,
		notifier:         notifier,
		negativeKeywords: defaultNegativeKeywords,
		dedupWindow:      24 * time.Hour,
		minEngagement:    10,
	}

	if cfg != nil {
		if len(cfg.NegativeKeywords) > 0 {
			engine.negativeKeywords = cfg.NegativeKeywords
		}
		if cfg.AlertDedupHours > 0 {
			engine.dedupWindow = time.Duration(cfg.AlertDedupHours) * time.Hour
		}
		if cfg.MinEngagementAlert > 0 {
			engine.minEngagement = cfg.MinEngagementAlert
		}
	}

	return engine
}

type detector struct {
	name string
	run  func(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error)
}

func (e *Engine) detectors() []detector {
	return []detector{
		{"score_drop", e.detectScoreDrop},
		{"negative_content", e.detectNegativeSerpContent},
		{"serp_change", e.detectSerpPositionChange},
		{"social_negative", e.detectNegativeSocial},
		{"critical_event", e.detectCriticalEvents},
	}
}

// GenerateAlertsForClient runs every detector over the window, concatenates
// their candidates, deduplicates, persists the survivors, and triggers
// immediate delivery for critical ones. Returns the persisted set.
//
// A failing detector is logged and the rest keep running; partial alerting
// beats none. Candidates a detector returned before failing still count.
func (e *Engine) GenerateAlertsForClient(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error) {
	logrus.Infof("Running alert detectors for client %s (%s to %s)",
		clientID, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))

	detectors := e.detectors()
	results := make([][]models.Alert, len(detectors))

	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func(i int, d detector) {
			defer wg.Done()
			alerts, err := d.run(ctx, clientID, periodStart, periodEnd)
			if err != nil {
				logrus.Errorf("Detector %s failed for client %s: %v", d.name, clientID, err)
			}
			results[i] = alerts
		}(i, d)
	}
	wg.Wait()

	var candidates []models.Alert
	for _, alerts := range results {
		candidates = append(candidates, alerts...)
	}

	logrus.Infof("Detectors produced %d candidate alerts for client %s", len(candidates), clientID)
	return e.persistAlerts(ctx, clientID, candidates)
}

// persistAlerts applies in-run dedup, then the 24-hour persisted dedup, then
// inserts the survivors. Every dedup check runs before any insert so that
// two distinct alerts from the same run never suppress each other.
func (e *Engine) persistAlerts(ctx context.Context, clientID string, candidates []models.Alert) ([]models.Alert, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	// In-run dedup: first candidate per (type, severity, title) key wins.
	seen := make(map[string]struct{}, len(candidates))
	var unique []models.Alert
	for _, a := range candidates {
		key := string(a.Type) + "|" + string(a.Severity) + "|" + a.Title
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, a)
	}

	since := time.Now().UTC().Add(-e.dedupWindow)
	var toInsert []models.Alert
	for _, a := range unique {
		existing, err := e.storage.RecentAlerts(ctx, clientID, a.Type, a.Severity, since)
		if err != nil {
			logrus.Errorf("Dedup lookup failed for %s/%s alert on client %s: %v", a.Type, a.Severity, clientID, err)
			continue
		}
		if len(existing) > 0 {
			logrus.Debugf("Suppressing duplicate %s/%s alert for client %s", a.Type, a.Severity, clientID)
			continue
		}
		toInsert = append(toInsert, a)
	}

	var persisted []models.Alert
	for _, a := range toInsert {
		a.ID = uuid.NewString()
		a.ClientID = clientID
		a.Status = models.StatusActive
		a.EmailSent = false
		a.CreatedAt = time.Now().UTC()

		stored, err := e.storage.InsertAlert(ctx, a)
		if err != nil {
			logrus.Errorf("Failed to persist %s alert for client %s: %v", a.Type, clientID, err)
			continue
		}

		if stored.Severity == models.SeverityCritical {
			e.deliverImmediate(ctx, &stored)
		}

		persisted = append(persisted, stored)
	}

	logrus.Infof("Persisted %d alerts for client %s (%d suppressed)",
		len(persisted), clientID, len(unique)-len(toInsert))

	return persisted, nil
}

// deliverImmediate sends a critical alert out of band. Delivery failure is
// logged and never rolls back the persisted alert; the email_sent flag is
// only set after a successful send.
func (e *Engine) deliverImmediate(ctx context.Context, alert *models.Alert) {
	if e.notifier == nil {
		return
	}

	if err := e.notifier.SendImmediateAlert(alert); err != nil {
		logrus.Errorf("Immediate delivery failed for alert %s: %v", alert.ID, err)
		return
	}

	if err := e.storage.MarkAlertEmailSent(ctx, alert.ID); err != nil {
		logrus.Errorf("Failed to record delivery of alert %s: %v", alert.ID, err)
		return
	}
	alert.EmailSent = true
}
