package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/repwatch/repwatch/internal/alerting"
	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/notifications"
	"github.com/repwatch/repwatch/internal/scoring"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// criticalSweepWindow is how far back the 4-hourly sweep looks for fresh
// critical signals.
const criticalSweepWindow = 4 * time.Hour

// Service schedules scoring and alerting runs across the client roster.
type Service struct {
	config     *config.Config
	storage    storage.StorageInterface
	calculator *scoring.Calculator
	alerts     *alerting.Engine
	notifier   notifications.NotificationInterface
	cron       *cron.Cron

	mu      sync.RWMutex
	metrics Metrics
}

// Metrics holds run statistics exposed on the metrics endpoint.
type Metrics struct {
	ClientsScored    int            `json:"clients_scored"`
	AlertsCreated    int            `json:"alerts_created"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	LastRun          time.Time      `json:"last_run"`
	LastRunDuration  string         `json:"last_run_duration"`
	ErrorCount       int            `json:"error_count"`
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, store storage.StorageInterface, calculator *scoring.Calculator, alerts *alerting.Engine, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:     cfg,
		storage:    store,
		calculator: calculator,
		alerts:     alerts,
		notifier:   notifier,
		cron:       cron.New(cron.WithSeconds()),
	}
}

// Start registers the cron entries and begins the schedule.
func (s *Service) Start() error {
	var scoringExpression string

	switch s.config.ScoringSchedule {
	case "daily":
		// Score daily at 6 AM UTC
		scoringExpression = "0 0 6 * * *"
	case "weekly":
		// Score weekly on Monday at 6 AM UTC
		scoringExpression = "0 0 6 * * MON"
	default:
		scoringExpression = "0 0 6 * * *"
	}

	_, err := s.cron.AddFunc(scoringExpression, func() {
		logrus.Info("Starting scheduled scoring cycle")
		if err := s.RunScoringCycle(); err != nil {
			logrus.Errorf("Scheduled scoring cycle failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	// Critical-only sweep every 4 hours so fresh adverse signals don't wait
	// for the next scoring run.
	_, err = s.cron.AddFunc("0 0 */4 * * *", func() {
		logrus.Info("Starting critical alert sweep (4-hour frequency)")
		if err := s.RunCriticalSweep(); err != nil {
			logrus.Errorf("Critical alert sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	// Weekly client reports on Monday at 9 AM UTC
	_, err = s.cron.AddFunc("0 0 9 * * MON", func() {
		logrus.Info("Starting weekly report run")
		if err := s.RunWeeklyReports(); err != nil {
			logrus.Errorf("Weekly report run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s scoring schedule (plus critical sweeps every 4 hours)", s.config.ScoringSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

// RunScoringCycle scores every client over the configured window and then
// runs alert detection. Clients are independent; one failing never stops
// the rest.
func (s *Service) RunScoringCycle() error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	clients, err := s.storage.ListClients(ctx)
	if err != nil {
		logrus.Errorf("Failed to list clients: %v", err)
		return err
	}

	periodEnd := time.Now().UTC()
	periodStart := periodEnd.AddDate(0, 0, -s.config.ScoringWindowDays)

	scored := 0
	alertsCreated := 0
	bySeverity := make(map[string]int)
	errorCount := 0

	for _, client := range clients {
		if _, err := s.calculator.Calculate(ctx, client.ID, periodStart, periodEnd); err != nil {
			logrus.Errorf("Scoring failed for client %s: %v", client.ID, err)
			errorCount++
			continue
		}
		scored++

		if !s.config.EnableAlerting {
			continue
		}

		alerts, err := s.alerts.GenerateAlertsForClient(ctx, client.ID, periodStart, periodEnd)
		if err != nil {
			logrus.Errorf("Alerting failed for client %s: %v", client.ID, err)
			errorCount++
			continue
		}
		alertsCreated += len(alerts)
		for _, a := range alerts {
			bySeverity[string(a.Severity)]++
		}
	}

	s.updateMetrics(scored, alertsCreated, bySeverity, time.Since(start), errorCount)

	logrus.Infof("Scoring cycle completed in %v: %d clients scored, %d alerts created, %d errors",
		time.Since(start), scored, alertsCreated, errorCount)
	return nil
}

// RunCriticalSweep runs alert detection only, over a short recent window.
func (s *Service) RunCriticalSweep() error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	clients, err := s.storage.ListClients(ctx)
	if err != nil {
		logrus.Errorf("Failed to list clients: %v", err)
		return err
	}

	periodEnd := time.Now().UTC()
	periodStart := periodEnd.Add(-criticalSweepWindow)

	total := 0
	for _, client := range clients {
		alerts, err := s.alerts.GenerateAlertsForClient(ctx, client.ID, periodStart, periodEnd)
		if err != nil {
			logrus.Errorf("Critical sweep failed for client %s: %v", client.ID, err)
			continue
		}
		total += len(alerts)
	}

	logrus.Infof("Critical sweep completed in %v, %d alerts created", time.Since(start), total)
	return nil
}

// RunWeeklyReports builds and sends the per-client reputation report.
func (s *Service) RunWeeklyReports() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	clients, err := s.storage.ListClients(ctx)
	if err != nil {
		logrus.Errorf("Failed to list clients: %v", err)
		return err
	}

	for _, client := range clients {
		report, err := s.buildClientReport(ctx, client)
		if err != nil {
			logrus.Errorf("Failed to build report for client %s: %v", client.ID, err)
			continue
		}
		if err := s.notifier.SendReport(report); err != nil {
			logrus.Errorf("Failed to send report for client %s: %v", client.ID, err)
			continue
		}
		logrus.Infof("Sent weekly report for client %s", client.Name)
	}

	return nil
}

func (s *Service) buildClientReport(ctx context.Context, client models.Client) (*models.ReputationReport, error) {
	now := time.Now().UTC()
	weekStart := now.AddDate(0, 0, -7)

	report := &models.ReputationReport{
		GeneratedAt:     now,
		Client:          client,
		Period:          "weekly",
		Trend:           models.TrendStable,
		SentimentCounts: make(map[string]int),
	}

	current, err := s.storage.LatestScoreBefore(ctx, client.ID, now)
	if err != nil {
		return nil, err
	}
	report.Score = current

	if current != nil {
		previous, err := s.storage.LatestScoreBefore(ctx, client.ID, current.PeriodStart)
		if err != nil {
			return nil, err
		}
		if previous != nil {
			report.Trend = scoring.CalculateTrend(current.Score, previous.Score)
		}
	}

	mentions, err := s.storage.NewsMentions(ctx, client.ID, weekStart, now)
	if err != nil {
		return nil, err
	}
	for _, m := range mentions {
		report.SentimentCounts[m.Sentiment]++
	}
	report.TotalMentions = len(mentions)

	alerts, err := s.storage.AlertsForClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		if a.Status == models.StatusActive {
			report.ActiveAlerts = append(report.ActiveAlerts, a)
		}
	}

	return report, nil
}

func (s *Service) updateMetrics(scored, alertsCreated int, bySeverity map[string]int, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.ClientsScored = scored
	s.metrics.AlertsCreated = alertsCreated
	s.metrics.AlertsBySeverity = bySeverity
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ErrorCount = errorCount
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
