package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/repwatch/repwatch/internal/models"
)

// Detector thresholds. Drops are measured in composite points for scores
// and in search positions for rankings.
const (
	minScoreDrop         = 3.0
	highScoreDrop        = 5.0
	criticalScoreDrop    = 10.0
	defaultPositionDrop  = 3
	highPositionDrop     = 5
	criticalPositionDrop = 10
	lowCompositeScore    = 30.0
	negativeMentionSurge = 5
)

// detectScoreDrop compares the current persisted composite score against
// the score from 30 days earlier and alerts when it fell by 3 or more.
func (e *Engine) detectScoreDrop(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error) {
	current, err := e.storage.LatestScoreBefore(ctx, clientID, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("load current score: %w", err)
	}
	previous, err := e.storage.LatestScoreBefore(ctx, clientID, periodEnd.AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("load previous score: %w", err)
	}
	if current == nil || previous == nil {
		return nil, nil
	}

	drop := previous.Score - current.Score
	if drop < minScoreDrop {
		return nil, nil
	}

	severity := models.SeverityMedium
	switch {
	case drop >= criticalScoreDrop:
		severity = models.SeverityCritical
	case drop >= highScoreDrop:
		severity = models.SeverityHigh
	}

	return []models.Alert{{
		Type:     models.AlertScoreDrop,
		Severity: severity,
		Title:    fmt.Sprintf("Reputation score dropped %.1f points", drop),
		Message: fmt.Sprintf("Composite score fell from %.2f to %.2f over the last 30 days.",
			previous.Score, current.Score),
	}}, nil
}

// detectNegativeSerpContent scans top-10 search results in the window for
// negative-lexicon matches in the title or snippet. One alert per match.
func (e *Engine) detectNegativeSerpContent(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error) {
	keywords, err := e.storage.ListActiveKeywords(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	results, err := e.storage.SerpResults(ctx, keywordIDs(keywords), periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("load serp results: %w", err)
	}

	var alerts []models.Alert
	for _, r := range results {
		if r.Position == nil || *r.Position < 1 || *r.Position > 10 {
			continue
		}
		term := matchNegativeKeyword(r.Title+" "+r.Snippet, e.negativeKeywords)
		if term == "" {
			continue
		}

		pos := *r.Position
		severity := models.SeverityMedium
		switch {
		case pos <= 3:
			severity = models.SeverityCritical
		case pos <= 5:
			severity = models.SeverityHigh
		}

		alerts = append(alerts, models.Alert{
			Type:       models.AlertNegativeContent,
			Severity:   severity,
			Title:      fmt.Sprintf("Negative result at position %d: %s", pos, r.Title),
			Message:    fmt.Sprintf("Search result matched negative term %q at position %d: %s", term, pos, r.URL),
			SourceType: "serp_result",
			SourceID:   r.ID,
		})
	}

	return alerts, nil
}

// detectSerpPositionChange compares each keyword's latest client-owned
// position in the window against its latest client-owned position in the
// prior 7 days. Only drops alert; improvements never do.
func (e *Engine) detectSerpPositionChange(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error) {
	keywords, err := e.storage.ListActiveKeywords(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	ids := keywordIDs(keywords)
	currentResults, err := e.storage.LatestSerpResultsByKeyword(ctx, ids, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("load current serp results: %w", err)
	}
	priorResults, err := e.storage.LatestSerpResultsByKeyword(ctx, ids, periodStart.AddDate(0, 0, -7), periodStart)
	if err != nil {
		return nil, fmt.Errorf("load prior serp results: %w", err)
	}

	current := latestClientOwned(currentResults)
	prior := latestClientOwned(priorResults)

	var alerts []models.Alert
	for _, kw := range keywords {
		cur, okCur := current[kw.ID]
		prev, okPrev := prior[kw.ID]
		if !okCur || !okPrev {
			continue
		}

		drop := *cur.Position - *prev.Position
		threshold := kw.AlertThreshold
		if threshold <= 0 {
			threshold = defaultPositionDrop
		}
		if drop < threshold {
			continue
		}

		severity := models.SeverityMedium
		switch {
		case drop >= criticalPositionDrop:
			severity = models.SeverityCritical
		case drop >= highPositionDrop:
			severity = models.SeverityHigh
		}

		alerts = append(alerts, models.Alert{
			Type:     models.AlertSerpChange,
			Severity: severity,
			Title:    fmt.Sprintf("Ranking dropped %d positions for %q", drop, kw.Phrase),
			Message: fmt.Sprintf("Client-owned result for %q moved from position %d to %d.",
				kw.Phrase, *prev.Position, *cur.Position),
			SourceType: "serp_result",
			SourceID:   cur.ID,
		})
	}

	return alerts, nil
}

// latestClientOwned indexes the most recent client-owned ranked result per
// keyword. Results arrive most-recent-first.
func latestClientOwned(results []models.SERPResult) map[string]models.SERPResult {
	latest := make(map[string]models.SERPResult)
	for _, r := range results {
		if !r.IsClientContent || r.Position == nil || *r.Position < 1 {
			continue
		}
		if _, ok := latest[r.KeywordID]; !ok {
			latest[r.KeywordID] = r
		}
	}
	return latest
}

// detectNegativeSocial flags negative posts whose engagement clears the
// configured floor; severity scales with how negative the sentiment is.
func (e *Engine) detectNegativeSocial(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error) {
	accounts, err := e.storage.ActiveSocialAccounts(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	platforms := make(map[string]string, len(accounts))
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
		platforms[a.ID] = a.Platform
	}

	posts, err := e.storage.SocialPosts(ctx, ids, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("load social posts: %w", err)
	}

	var alerts []models.Alert
	for _, p := range posts {
		if p.Sentiment != models.SentimentNegative || p.Engagement() < e.minEngagement {
			continue
		}

		severity := models.SeverityLow
		switch {
		case p.SentimentScore <= -0.7:
			severity = models.SeverityCritical
		case p.SentimentScore <= -0.5:
			severity = models.SeverityHigh
		case p.SentimentScore <= -0.3:
			severity = models.SeverityMedium
		}

		alerts = append(alerts, models.Alert{
			Type:     models.AlertSocialNegative,
			Severity: severity,
			Title:    fmt.Sprintf("Negative %s post with %d interactions", platforms[p.AccountID], p.Engagement()),
			Message: fmt.Sprintf("Post scored %.2f sentiment with %d likes, %d comments, %d shares: %s",
				p.SentimentScore, p.Likes, p.Comments, p.Shares, p.URL),
			SourceType: "social_post",
			SourceID:   p.ID,
		})
	}

	return alerts, nil
}

// detectCriticalEvents has two independent triggers that may both fire in
// one run: a composite score below 30, and a surge of negative news.
func (e *Engine) detectCriticalEvents(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]models.Alert, error) {
	var alerts []models.Alert

	current, err := e.storage.LatestScoreBefore(ctx, clientID, periodEnd)
	if err != nil {
		return alerts, fmt.Errorf("load current score: %w", err)
	}
	if current != nil && current.Score < lowCompositeScore {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertCriticalEvent,
			Severity: models.SeverityCritical,
			Title:    "Reputation score critically low",
			Message: fmt.Sprintf("Composite score is %.2f, below the critical threshold of %.0f.",
				current.Score, lowCompositeScore),
		})
	}

	mentions, err := e.storage.NewsMentions(ctx, clientID, periodStart, periodEnd)
	if err != nil {
		// Partial results beat none: the score trigger above still stands.
		return alerts, fmt.Errorf("load mentions: %w", err)
	}

	negative := 0
	for _, m := range mentions {
		if m.Sentiment == models.SentimentNegative {
			negative++
		}
	}
	if negative >= negativeMentionSurge {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertCriticalEvent,
			Severity: models.SeverityCritical,
			Title:    "Surge of negative news coverage",
			Message:  fmt.Sprintf("%d negative news mentions in the current window.", negative),
		})
	}

	return alerts, nil
}

func keywordIDs(keywords []models.Keyword) []string {
	ids := make([]string, len(keywords))
	for i, kw := range keywords {
		ids[i] = kw.ID
	}
	return ids
}
