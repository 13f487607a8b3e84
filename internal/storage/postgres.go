package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/repwatch/repwatch/internal/models"
)

// PostgresStorage implements the storage contract on a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStorage implements StorageInterface
var _ StorageInterface = (*PostgresStorage)(nil)

// Connect opens a pooled Postgres connection and verifies it.
func Connect(ctx context.Context, url string) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStorage{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStorage) Close() { s.pool.Close() }

func (s *PostgresStorage) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, domain, created_at
		FROM clients
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *PostgresStorage) GetClient(ctx context.Context, clientID string) (models.Client, error) {
	var c models.Client
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, domain, created_at
		FROM clients
		WHERE id = $1
	`, clientID).Scan(&c.ID, &c.Name, &c.Domain, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Client{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStorage) ListActiveKeywords(ctx context.Context, clientID string) ([]models.Keyword, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, phrase, active, alert_threshold, created_at
		FROM keywords
		WHERE client_id = $1 AND active
		ORDER BY created_at
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var kw models.Keyword
		if err := rows.Scan(&kw.ID, &kw.ClientID, &kw.Phrase, &kw.Active, &kw.AlertThreshold, &kw.CreatedAt); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

func (s *PostgresStorage) LatestSerpResultsByKeyword(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time) ([]models.SERPResult, error) {
	return s.serpResults(ctx, keywordIDs, periodStart, periodEnd, "checked_at DESC")
}

func (s *PostgresStorage) SerpResults(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time) ([]models.SERPResult, error) {
	return s.serpResults(ctx, keywordIDs, periodStart, periodEnd, "checked_at")
}

func (s *PostgresStorage) serpResults(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time, order string) ([]models.SERPResult, error) {
	if len(keywordIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, keyword_id, position, url, title, snippet, is_client_content, checked_at
		FROM serp_results
		WHERE keyword_id = ANY($1) AND checked_at >= $2 AND checked_at < $3
		ORDER BY `+order, keywordIDs, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SERPResult
	for rows.Next() {
		var r models.SERPResult
		if err := rows.Scan(&r.ID, &r.KeywordID, &r.Position, &r.URL, &r.Title, &r.Snippet, &r.IsClientContent, &r.CheckedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStorage) NewsMentions(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Mention, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, source, title, content, url,
		       sentiment, sentiment_score, sentiment_confidence, published_at
		FROM mentions
		WHERE client_id = $1 AND published_at >= $2 AND published_at < $3
		ORDER BY published_at DESC
	`, clientID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []models.Mention
	for rows.Next() {
		var m models.Mention
		if err := rows.Scan(&m.ID, &m.ClientID, &m.Source, &m.Title, &m.Content, &m.URL,
			&m.Sentiment, &m.SentimentScore, &m.SentimentConfidence, &m.PublishedAt); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

func (s *PostgresStorage) ActiveSocialAccounts(ctx context.Context, clientID string) ([]models.SocialAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, platform, handle, active
		FROM social_accounts
		WHERE client_id = $1 AND active
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.SocialAccount
	for rows.Next() {
		var a models.SocialAccount
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Platform, &a.Handle, &a.Active); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStorage) SocialPosts(ctx context.Context, accountIDs []string, periodStart, periodEnd time.Time) ([]models.SocialPost, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, content, url,
		       sentiment, sentiment_score, sentiment_confidence,
		       likes, comments, shares, posted_at
		FROM social_posts
		WHERE account_id = ANY($1) AND posted_at >= $2 AND posted_at < $3
		ORDER BY posted_at DESC
	`, accountIDs, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.SocialPost
	for rows.Next() {
		var p models.SocialPost
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Content, &p.URL,
			&p.Sentiment, &p.SentimentScore, &p.SentimentConfidence,
			&p.Likes, &p.Comments, &p.Shares, &p.PostedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostgresStorage) LatestScoreBefore(ctx context.Context, clientID string, before time.Time) (*models.ReputationScore, error) {
	var sc models.ReputationScore
	err := s.pool.QueryRow(ctx, `
		SELECT id, client_id, period_start, period_end, score,
		       serp_score, news_score, social_score, trend_score, volume_score, created_at
		FROM reputation_scores
		WHERE client_id = $1 AND period_end <= $2
		ORDER BY period_end DESC, created_at DESC
		LIMIT 1
	`, clientID, before).Scan(&sc.ID, &sc.ClientID, &sc.PeriodStart, &sc.PeriodEnd, &sc.Score,
		&sc.Breakdown.SERP, &sc.Breakdown.News, &sc.Breakdown.Social, &sc.Breakdown.Trend, &sc.Breakdown.Volume,
		&sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *PostgresStorage) InsertReputationScore(ctx context.Context, score models.ReputationScore) (models.ReputationScore, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_scores
			(id, client_id, period_start, period_end, score,
			 serp_score, news_score, social_score, trend_score, volume_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, score.ID, score.ClientID, score.PeriodStart, score.PeriodEnd, score.Score,
		score.Breakdown.SERP, score.Breakdown.News, score.Breakdown.Social,
		score.Breakdown.Trend, score.Breakdown.Volume, score.CreatedAt)
	return score, err
}

func (s *PostgresStorage) RecentAlerts(ctx context.Context, clientID string, alertType models.AlertType, severity models.Severity, since time.Time) ([]models.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, alert_type, severity, title, message,
		       COALESCE(source_type, ''), COALESCE(source_id, ''), status, email_sent, created_at
		FROM alerts
		WHERE client_id = $1 AND alert_type = $2 AND severity = $3 AND created_at >= $4
		ORDER BY created_at DESC
	`, clientID, alertType, severity, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (s *PostgresStorage) AlertsForClient(ctx context.Context, clientID string) ([]models.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, alert_type, severity, title, message,
		       COALESCE(source_type, ''), COALESCE(source_id, ''), status, email_sent, created_at
		FROM alerts
		WHERE client_id = $1
		ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows pgx.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Type, &a.Severity, &a.Title, &a.Message,
			&a.SourceType, &a.SourceID, &a.Status, &a.EmailSent, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStorage) GetAlert(ctx context.Context, alertID string) (models.Alert, error) {
	var a models.Alert
	err := s.pool.QueryRow(ctx, `
		SELECT id, client_id, alert_type, severity, title, message,
		       COALESCE(source_type, ''), COALESCE(source_id, ''), status, email_sent, created_at
		FROM alerts
		WHERE id = $1
	`, alertID).Scan(&a.ID, &a.ClientID, &a.Type, &a.Severity, &a.Title, &a.Message,
		&a.SourceType, &a.SourceID, &a.Status, &a.EmailSent, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, ErrNotFound
	}
	return a, err
}

func (s *PostgresStorage) InsertAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts
			(id, client_id, alert_type, severity, title, message,
			 source_type, source_id, status, email_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)
	`, alert.ID, alert.ClientID, alert.Type, alert.Severity, alert.Title, alert.Message,
		alert.SourceType, alert.SourceID, alert.Status, alert.EmailSent, alert.CreatedAt)
	return alert, err
}

func (s *PostgresStorage) UpdateAlertStatus(ctx context.Context, alertID string, status models.AlertStatus) (models.Alert, error) {
	var a models.Alert
	err := s.pool.QueryRow(ctx, `
		UPDATE alerts
		SET status = $2
		WHERE id = $1
		RETURNING id, client_id, alert_type, severity, title, message,
		          COALESCE(source_type, ''), COALESCE(source_id, ''), status, email_sent, created_at
	`, alertID, status).Scan(&a.ID, &a.ClientID, &a.Type, &a.Severity, &a.Title, &a.Message,
		&a.SourceType, &a.SourceID, &a.Status, &a.EmailSent, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, ErrNotFound
	}
	return a, err
}

func (s *PostgresStorage) MarkAlertEmailSent(ctx context.Context, alertID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alerts SET email_sent = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
