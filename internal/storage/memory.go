package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/repwatch/repwatch/internal/models"
)

// MemoryStorage is an in-process implementation of the storage contract,
// used by tests and the sample harness. Signal slices are seeded directly;
// queries mirror the ordering guarantees of the Postgres adapter.
type MemoryStorage struct {
	mu sync.RWMutex

	Clients     []models.Client
	Keywords    []models.Keyword
	SERPResults []models.SERPResult
	Mentions    []models.Mention
	Accounts    []models.SocialAccount
	Posts       []models.SocialPost
	Scores      []models.ReputationScore
	Alerts      []models.Alert
}

// Ensure MemoryStorage implements StorageInterface
var _ StorageInterface = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) ListClients(ctx context.Context) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Client(nil), s.Clients...), nil
}

func (s *MemoryStorage) GetClient(ctx context.Context, clientID string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.Clients {
		if c.ID == clientID {
			return c, nil
		}
	}
	return models.Client{}, ErrNotFound
}

func (s *MemoryStorage) ListActiveKeywords(ctx context.Context, clientID string) ([]models.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Keyword
	for _, kw := range s.Keywords {
		if kw.ClientID == clientID && kw.Active {
			out = append(out, kw)
		}
	}
	return out, nil
}

func (s *MemoryStorage) LatestSerpResultsByKeyword(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time) ([]models.SERPResult, error) {
	results, err := s.SerpResults(ctx, keywordIDs, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	// Most-recent-first ordering is part of the contract.
	sort.Slice(results, func(i, j int) bool {
		return results[i].CheckedAt.After(results[j].CheckedAt)
	})
	return results, nil
}

func (s *MemoryStorage) SerpResults(ctx context.Context, keywordIDs []string, periodStart, periodEnd time.Time) ([]models.SERPResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := toSet(keywordIDs)
	var out []models.SERPResult
	for _, r := range s.SERPResults {
		if _, ok := ids[r.KeywordID]; !ok {
			continue
		}
		if inWindow(r.CheckedAt, periodStart, periodEnd) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStorage) NewsMentions(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Mention
	for _, m := range s.Mentions {
		if m.ClientID == clientID && inWindow(m.PublishedAt, periodStart, periodEnd) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStorage) ActiveSocialAccounts(ctx context.Context, clientID string) ([]models.SocialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SocialAccount
	for _, a := range s.Accounts {
		if a.ClientID == clientID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStorage) SocialPosts(ctx context.Context, accountIDs []string, periodStart, periodEnd time.Time) ([]models.SocialPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := toSet(accountIDs)
	var out []models.SocialPost
	for _, p := range s.Posts {
		if _, ok := ids[p.AccountID]; !ok {
			continue
		}
		if inWindow(p.PostedAt, periodStart, periodEnd) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStorage) LatestScoreBefore(ctx context.Context, clientID string, before time.Time) (*models.ReputationScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ReputationScore
	for i := range s.Scores {
		sc := s.Scores[i]
		if sc.ClientID != clientID || sc.PeriodEnd.After(before) {
			continue
		}
		if latest == nil || sc.PeriodEnd.After(latest.PeriodEnd) {
			copied := sc
			latest = &copied
		}
	}
	return latest, nil
}

func (s *MemoryStorage) InsertReputationScore(ctx context.Context, score models.ReputationScore) (models.ReputationScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scores = append(s.Scores, score)
	return score, nil
}

func (s *MemoryStorage) RecentAlerts(ctx context.Context, clientID string, alertType models.AlertType, severity models.Severity, since time.Time) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.Alerts {
		if a.ClientID == clientID && a.Type == alertType && a.Severity == severity && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStorage) AlertsForClient(ctx context.Context, clientID string) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.Alerts {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) GetAlert(ctx context.Context, alertID string) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.Alerts {
		if a.ID == alertID {
			return a, nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (s *MemoryStorage) InsertAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Alerts = append(s.Alerts, alert)
	return alert, nil
}

func (s *MemoryStorage) UpdateAlertStatus(ctx context.Context, alertID string, status models.AlertStatus) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Alerts {
		if s.Alerts[i].ID == alertID {
			s.Alerts[i].Status = status
			return s.Alerts[i], nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (s *MemoryStorage) MarkAlertEmailSent(ctx context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Alerts {
		if s.Alerts[i].ID == alertID {
			s.Alerts[i].EmailSent = true
			return nil
		}
	}
	return ErrNotFound
}

// inWindow reports whether t falls in [start, end).
func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
