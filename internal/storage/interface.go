package storage

import (
	"context"
	"errors"
	"time"

	"github.com/repwatch/repwatch/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// StorageInterface defines the query contract between the scoring/alerting
// engine and its storage collaborator. Signal tables (SERP results, mentions,
// social posts) are append-only and read-only to the engine; scores are
// insert-only; alerts are inserted by the engine and mutated only through
// status transitions and the email-sent flag.
type StorageInterface interface {
	// Clients
	ListClients(ctx context.Context) ([]models.Client, error)
	GetClient(ctx context.Context, clientID string) (models.Client, error)

	// Keywords and SERP results
	ListActiveKeywords(ctx context.Context, clientID string) ([]models.Keyword, error)
	// LatestSerpResultsByKeyword returns the in-window results for the given
	// keywords ordered most-recent-first.
	LatestSerpResultsByKeyword(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time) ([]models.SERPResult, error)
	// SerpResults returns every in-window result for the given keywords.
	SerpResults(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time) ([]models.SERPResult, error)

	// Mentions and social signals
	NewsMentions(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Mention, error)
	ActiveSocialAccounts(ctx context.Context, clientID string) ([]models.SocialAccount, error)
	SocialPosts(ctx context.Context, accountIDs []string, periodStart, periodEnd time.Time) ([]models.SocialPost, error)

	// Scores
	// LatestScoreBefore returns the most recent persisted score whose period
	// ended at or before the given time, or nil when none exists.
	LatestScoreBefore(ctx context.Context, clientID string, before time.Time) (*models.ReputationScore, error)
	InsertReputationScore(ctx context.Context, score models.ReputationScore) (models.ReputationScore, error)

	// Alerts
	RecentAlerts(ctx context.Context, clientID string, alertType models.AlertType, severity models.Severity, since time.Time) ([]models.Alert, error)
	AlertsForClient(ctx context.Context, clientID string) ([]models.Alert, error)
	GetAlert(ctx context.Context, alertID string) (models.Alert, error)
	InsertAlert(ctx context.Context, alert models.Alert) (models.Alert, error)
	UpdateAlertStatus(ctx context.Context, alertID string, status models.AlertStatus) (models.Alert, error)
	MarkAlertEmailSent(ctx context.Context, alertID string) error
}
