package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/sirupsen/logrus"
)

// Composite weights for the five sub-scores. They sum to exactly 1.0.
const (
	weightSERP   = 0.35
	weightNews   = 0.25
	weightSocial = 0.20
	weightTrend  = 0.15
	weightVolume = 0.05
)

// neutralScore is the documented default when a signal has no data.
// Missing data is never an error; the score degrades to neutral.
const neutralScore = 5.0

// Calculator reduces a client's monitoring signals over an evaluation period
// into a composite reputation score with a five-part breakdown.
type Calculator struct {
	storage storage.StorageInterface
}

// NewCalculator creates a new score calculator
func NewCalculator(store storage.StorageInterface) *Calculator {
	return &Calculator{storage: store}
}

// Calculate computes the five sub-scores for the window [periodStart,
// periodEnd), persists exactly one new ReputationScore row, and returns it.
// Calculating the same inputs again produces an identical score in a new row.
func (c *Calculator) Calculate(ctx context.Context, clientID string, periodStart, periodEnd time.Time) (models.ReputationScore, error) {
	logrus.Infof("Calculating reputation score for client %s (%s to %s)",
		clientID, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))

	signals, err := c.fetchSignals(ctx, clientID, periodStart, periodEnd)
	if err != nil {
		logrus.Errorf("Failed to fetch signals for client %s: %v", clientID, err)
		return models.ReputationScore{}, err
	}

	breakdown := models.ScoreBreakdown{
		SERP:   serpSubScore(signals.keywords, signals.serpResults),
		News:   newsSubScore(signals.mentions),
		Social: socialSubScore(signals.posts),
		Volume: volumeSubScore(signals.mentions, signals.posts),
	}

	// The trend sub-score compares a provisional composite, built from the
	// other four sub-scores at their original weights, against the previous
	// 30-day period's persisted score. The final composite is then recomputed
	// with the trend folded in.
	prelim := round2((breakdown.SERP*weightSERP +
		breakdown.News*weightNews +
		breakdown.Social*weightSocial +
		breakdown.Volume*weightVolume) * 10)

	previous, err := c.storage.LatestScoreBefore(ctx, clientID, periodStart)
	if err != nil {
		logrus.Errorf("Failed to load previous score for client %s: %v", clientID, err)
		return models.ReputationScore{}, fmt.Errorf("load previous score: %w", err)
	}
	breakdown.Trend = trendSubScore(prelim, previous)

	composite := compositeScore(breakdown)

	score := models.ReputationScore{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Score:       composite,
		Breakdown:   breakdown,
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := c.storage.InsertReputationScore(ctx, score)
	if err != nil {
		logrus.Errorf("Failed to persist score for client %s: %v", clientID, err)
		return models.ReputationScore{}, fmt.Errorf("persist score: %w", err)
	}

	logrus.Infof("Client %s scored %.2f (serp=%.2f news=%.2f social=%.2f trend=%.2f volume=%.2f)",
		clientID, stored.Score, breakdown.SERP, breakdown.News, breakdown.Social, breakdown.Trend, breakdown.Volume)

	return stored, nil
}

// signalWindow bundles the raw signals for one client and period.
type signalWindow struct {
	keywords    []models.Keyword
	serpResults []models.SERPResult
	mentions    []models.Mention
	posts       []models.SocialPost
}

// fetchSignals loads the three signal families concurrently. Any storage
// error fails the whole calculation; a wrong score is worse than no score.
func (c *Calculator) fetchSignals(ctx context.Context, clientID string, periodStart, periodEnd time.Time) (*signalWindow, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		signals  signalWindow
	)

	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		keywords, err := c.storage.ListActiveKeywords(ctx, clientID)
		if err != nil {
			fail(fmt.Errorf("list keywords: %w", err))
			return
		}
		var results []models.SERPResult
		if len(keywords) > 0 {
			results, err = c.storage.LatestSerpResultsByKeyword(ctx, keywordIDs(keywords), periodStart, periodEnd)
			if err != nil {
				fail(fmt.Errorf("load serp results: %w", err))
				return
			}
		}
		mu.Lock()
		signals.keywords, signals.serpResults = keywords, results
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		mentions, err := c.storage.NewsMentions(ctx, clientID, periodStart, periodEnd)
		if err != nil {
			fail(fmt.Errorf("load mentions: %w", err))
			return
		}
		mu.Lock()
		signals.mentions = mentions
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		accounts, err := c.storage.ActiveSocialAccounts(ctx, clientID)
		if err != nil {
			fail(fmt.Errorf("list social accounts: %w", err))
			return
		}
		var posts []models.SocialPost
		if len(accounts) > 0 {
			posts, err = c.storage.SocialPosts(ctx, accountIDs(accounts), periodStart, periodEnd)
			if err != nil {
				fail(fmt.Errorf("load social posts: %w", err))
				return
			}
		}
		mu.Lock()
		signals.posts = posts
		mu.Unlock()
	}()

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &signals, nil
}

// serpSubScore averages the position score of each keyword's most recent
// in-window result. Results arrive most-recent-first, so the first result
// seen per keyword wins.
func serpSubScore(keywords []models.Keyword, results []models.SERPResult) float64 {
	if len(keywords) == 0 || len(results) == 0 {
		return neutralScore
	}

	latest := make(map[string]models.SERPResult, len(keywords))
	for _, r := range results {
		if _, ok := latest[r.KeywordID]; !ok {
			latest[r.KeywordID] = r
		}
	}

	var sum float64
	var counted int
	for _, kw := range keywords {
		r, ok := latest[kw.ID]
		if !ok {
			continue
		}
		sum += positionScore(r.Position, r.IsClientContent)
		counted++
	}

	if counted == 0 {
		return neutralScore
	}
	return round2(sum / float64(counted))
}

// newsSubScore is the confidence-weighted mean sentiment of news mentions,
// remapped from [-1, 1] onto [0, 10].
func newsSubScore(mentions []models.Mention) float64 {
	if len(mentions) == 0 {
		return neutralScore
	}

	var weighted, total float64
	for _, m := range mentions {
		conf := clamp(m.SentimentConfidence, 0, 1)
		weighted += clamp(m.SentimentScore, -1, 1) * conf
		total += conf
	}

	if total == 0 {
		return neutralScore
	}
	return round2(clamp((weighted/total+1)*5, 0, 10))
}

// socialSubScore weights each post's sentiment by its engagement so that
// widely seen posts dominate the average.
func socialSubScore(posts []models.SocialPost) float64 {
	if len(posts) == 0 {
		return neutralScore
	}

	var weighted, total float64
	for _, p := range posts {
		engagement := float64(p.Likes + 2*p.Comments + 3*p.Shares)
		weight := math.Max(1, engagement) * clamp(p.SentimentConfidence, 0, 1)
		weighted += clamp(p.SentimentScore, -1, 1) * weight
		total += weight
	}

	if total == 0 {
		return neutralScore
	}
	return round2(clamp((weighted/total+1)*5, 0, 10))
}

// volumeSubScore rewards a favorable sentiment mix across the pooled news
// and social items, by label rather than by score.
func volumeSubScore(mentions []models.Mention, posts []models.SocialPost) float64 {
	total := len(mentions) + len(posts)
	if total == 0 {
		return neutralScore
	}

	counts := make(map[string]int, 3)
	for _, m := range mentions {
		counts[m.Sentiment]++
	}
	for _, p := range posts {
		counts[p.Sentiment]++
	}

	positive := float64(counts[models.SentimentPositive]) / float64(total)
	neutral := float64(counts[models.SentimentNeutral]) / float64(total)
	negative := float64(counts[models.SentimentNegative]) / float64(total)

	score := positive*10 + neutral*5 + math.Max(0, 5-negative*10)
	return round2(clamp(score, 0, 10))
}

// compositeScore combines all five sub-scores onto the 0-100 scale.
func compositeScore(b models.ScoreBreakdown) float64 {
	return round2(clamp((b.SERP*weightSERP+
		b.News*weightNews+
		b.Social*weightSocial+
		b.Trend*weightTrend+
		b.Volume*weightVolume)*10, 0, 100))
}

// trendSubScore maps the gap between the provisional composite and the
// previous period's persisted score onto [0, 10], centered at 5.
func trendSubScore(prelim float64, previous *models.ReputationScore) float64 {
	if previous == nil {
		return neutralScore
	}
	return round2(clamp(5+(prelim-previous.Score)/20*5, 0, 10))
}

func keywordIDs(keywords []models.Keyword) []string {
	ids := make([]string, len(keywords))
	for i, kw := range keywords {
		ids[i] = kw.ID
	}
	return ids
}

func accountIDs(accounts []models.SocialAccount) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
