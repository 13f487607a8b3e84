package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/repwatch/repwatch/internal/alerting"
	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/notifications"
	"github.com/repwatch/repwatch/internal/scoring"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/sirupsen/logrus"
)

// TestNotificationService prints immediate alerts to the terminal
type TestNotificationService struct{}

var _ notifications.NotificationInterface = (*TestNotificationService)(nil)

func (t *TestNotificationService) SendReport(report *models.ReputationReport) error {
	fmt.Printf("\n[report] %s: score=%v trend=%s alerts=%d\n",
		report.Client.Name, report.Score, report.Trend, len(report.ActiveAlerts))
	return nil
}

func (t *TestNotificationService) SendImmediateAlert(alert *models.Alert) error {
	fmt.Printf("\n🚨 IMMEDIATE ALERT [%s] %s\n   %s\n",
		strings.ToUpper(string(alert.Severity)), alert.Title, alert.Message)
	return nil
}

func main() {
	logrus.SetLevel(logrus.WarnLevel)

	store := storage.NewMemoryStorage()
	clientID := seedSampleData(store)

	calculator := scoring.NewCalculator(store)
	engine := alerting.NewEngine(&config.Config{}, store, &TestNotificationService{})

	ctx := context.Background()
	periodEnd := time.Now().UTC()
	periodStart := periodEnd.AddDate(0, 0, -30)

	score, err := calculator.Calculate(ctx, clientID, periodStart, periodEnd)
	if err != nil {
		fmt.Printf("scoring failed: %v\n", err)
		return
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("📊 REPUTATION SCORE")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("🏷️  Client:    %s\n", clientID)
	fmt.Printf("📅 Period:    %s → %s\n", periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))
	fmt.Printf("🎯 Composite: %.2f / 100\n", score.Score)
	fmt.Println("\n   Breakdown:")
	fmt.Printf("   • %-8s %.2f\n", "serp:", score.Breakdown.SERP)
	fmt.Printf("   • %-8s %.2f\n", "news:", score.Breakdown.News)
	fmt.Printf("   • %-8s %.2f\n", "social:", score.Breakdown.Social)
	fmt.Printf("   • %-8s %.2f\n", "trend:", score.Breakdown.Trend)
	fmt.Printf("   • %-8s %.2f\n", "volume:", score.Breakdown.Volume)

	alerts, err := engine.GenerateAlertsForClient(ctx, clientID, periodStart, periodEnd)
	if err != nil {
		fmt.Printf("alerting failed: %v\n", err)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("🔔 ALERTS (%d)\n", len(alerts))
	fmt.Println(strings.Repeat("=", 70))
	for i, alert := range alerts {
		fmt.Printf("\n%d. [%s] %s\n   %s\n", i+1, strings.ToUpper(string(alert.Severity)), alert.Title, alert.Message)
	}
	if len(alerts) == 0 {
		fmt.Println("No alerts raised.")
	}
}

// seedSampleData loads one client with a mixed signal window: a healthy
// branded keyword, a negative result climbing the rankings, a slipping
// client-owned page, mostly negative press, and one viral negative post.
func seedSampleData(store *storage.MemoryStorage) string {
	now := time.Now().UTC()
	clientID := uuid.NewString()
	store.Clients = append(store.Clients, models.Client{
		ID: clientID, Name: "Acme Corp", Domain: "acme.example", CreatedAt: now.AddDate(0, -6, 0),
	})

	kwBrand := uuid.NewString()
	kwReviews := uuid.NewString()
	store.Keywords = append(store.Keywords,
		models.Keyword{ID: kwBrand, ClientID: clientID, Phrase: "acme corp", Active: true},
		models.Keyword{ID: kwReviews, ClientID: clientID, Phrase: "acme corp reviews", Active: true},
	)

	pos := func(p int) *int { return &p }
	store.SERPResults = append(store.SERPResults,
		models.SERPResult{
			ID: uuid.NewString(), KeywordID: kwBrand, Position: pos(1),
			URL: "https://acme.example", Title: "Acme Corp - Official Site",
			IsClientContent: true, CheckedAt: now.Add(-2 * time.Hour),
		},
		models.SERPResult{
			ID: uuid.NewString(), KeywordID: kwReviews, Position: pos(3),
			URL: "https://consumerwatch.example/acme", Title: "Acme Corp lawsuit and complaint roundup",
			Snippet: "Customers allege fraud in a growing class action.",
			CheckedAt: now.Add(-3 * time.Hour),
		},
		// Client-owned reviews page slipped from 4 to 12 week over week.
		models.SERPResult{
			ID: uuid.NewString(), KeywordID: kwReviews, Position: pos(12),
			URL: "https://acme.example/reviews", Title: "Acme Corp Customer Reviews",
			IsClientContent: true, CheckedAt: now.Add(-4 * time.Hour),
		},
		models.SERPResult{
			ID: uuid.NewString(), KeywordID: kwReviews, Position: pos(4),
			URL: "https://acme.example/reviews", Title: "Acme Corp Customer Reviews",
			IsClientContent: true, CheckedAt: now.AddDate(0, 0, -33),
		},
	)

	for i := 0; i < 6; i++ {
		store.Mentions = append(store.Mentions, models.Mention{
			ID: uuid.NewString(), ClientID: clientID, Source: "news",
			Title:     fmt.Sprintf("Acme Corp under scrutiny, part %d", i+1),
			Sentiment: models.SentimentNegative, SentimentScore: -0.6, SentimentConfidence: 0.9,
			PublishedAt: now.AddDate(0, 0, -i-1),
		})
	}
	store.Mentions = append(store.Mentions, models.Mention{
		ID: uuid.NewString(), ClientID: clientID, Source: "news",
		Title:     "Acme Corp ships well-reviewed product update",
		Sentiment: models.SentimentPositive, SentimentScore: 0.7, SentimentConfidence: 0.8,
		PublishedAt: now.AddDate(0, 0, -2),
	})

	accountID := uuid.NewString()
	store.Accounts = append(store.Accounts, models.SocialAccount{
		ID: accountID, ClientID: clientID, Platform: "twitter", Handle: "@acmecorp", Active: true,
	})
	store.Posts = append(store.Posts,
		models.SocialPost{
			ID: uuid.NewString(), AccountID: accountID,
			Content:   "Acme Corp billing is a nightmare, avoid",
			Sentiment: models.SentimentNegative, SentimentScore: -0.8, SentimentConfidence: 0.95,
			Likes: 240, Comments: 85, Shares: 60,
			PostedAt: now.AddDate(0, 0, -3),
		},
		models.SocialPost{
			ID: uuid.NewString(), AccountID: accountID,
			Content:   "Acme Corp support sorted me out fast",
			Sentiment: models.SentimentPositive, SentimentScore: 0.6, SentimentConfidence: 0.7,
			Likes: 12, Comments: 2, Shares: 1,
			PostedAt: now.AddDate(0, 0, -5),
		},
	)

	// A prior-period score so the score-drop and trend paths have history.
	store.Scores = append(store.Scores, models.ReputationScore{
		ID: uuid.NewString(), ClientID: clientID,
		PeriodStart: now.AddDate(0, 0, -62), PeriodEnd: now.AddDate(0, 0, -32),
		Score: 72.40,
		Breakdown: models.ScoreBreakdown{SERP: 8.1, News: 6.9, Social: 7.2, Trend: 5.0, Volume: 6.5},
		CreatedAt: now.AddDate(0, 0, -32),
	})

	return clientID
}
