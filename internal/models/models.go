package models

import "time"

// Sentiment labels assigned by the ingestion pipeline.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// AlertType identifies which detector produced an alert.
type AlertType string

const (
	AlertScoreDrop       AlertType = "score_drop"
	AlertNegativeContent AlertType = "negative_content"
	AlertSerpChange      AlertType = "serp_change"
	AlertSocialNegative  AlertType = "social_negative"
	AlertCriticalEvent   AlertType = "critical_event"
)

// Severity levels, ordered from least to most urgent.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertStatus tracks the lifecycle of an alert after creation.
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
	StatusDismissed    AlertStatus = "dismissed"
)

// CanTransitionTo reports whether a status change is allowed. Active alerts
// can be acknowledged, resolved, or dismissed; acknowledged alerts can still
// be resolved or dismissed. Resolved and dismissed are terminal.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusAcknowledged || next == StatusResolved || next == StatusDismissed
	case StatusAcknowledged:
		return next == StatusResolved || next == StatusDismissed
	default:
		return false
	}
}

// TrendDirection describes score movement between adjacent periods.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Client is an entity being monitored.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"` // the client's own web property
	CreatedAt time.Time `json:"created_at"`
}

// Keyword is a search phrase tracked for one client.
type Keyword struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	Phrase         string    `json:"phrase"`
	Active         bool      `json:"active"`
	AlertThreshold int       `json:"alert_threshold"` // position drop that raises an alert; 0 = default
	CreatedAt      time.Time `json:"created_at"`
}

// SERPResult is one timestamped snapshot of a keyword's search position.
// Position is nil when nothing ranked within the tracked depth.
type SERPResult struct {
	ID              string    `json:"id"`
	KeywordID       string    `json:"keyword_id"`
	Position        *int      `json:"position,omitempty"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Snippet         string    `json:"snippet"`
	IsClientContent bool      `json:"is_client_content"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Mention is a news item about a client, with sentiment computed at ingestion.
type Mention struct {
	ID                  string    `json:"id"`
	ClientID            string    `json:"client_id"`
	Source              string    `json:"source"` // "news", "blog", etc.
	Title               string    `json:"title"`
	Content             string    `json:"content"`
	URL                 string    `json:"url"`
	Sentiment           string    `json:"sentiment"`
	SentimentScore      float64   `json:"sentiment_score"`      // [-1.0, 1.0]
	SentimentConfidence float64   `json:"sentiment_confidence"` // [0.0, 1.0]
	PublishedAt         time.Time `json:"published_at"`
}

// SocialAccount is a monitored social-media account belonging to a client.
type SocialAccount struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Platform string `json:"platform"` // "twitter", "facebook", etc.
	Handle   string `json:"handle"`
	Active   bool   `json:"active"`
}

// SocialPost is one post from a monitored account with engagement counts.
type SocialPost struct {
	ID                  string    `json:"id"`
	AccountID           string    `json:"account_id"`
	Content             string    `json:"content"`
	URL                 string    `json:"url"`
	Sentiment           string    `json:"sentiment"`
	SentimentScore      float64   `json:"sentiment_score"`
	SentimentConfidence float64   `json:"sentiment_confidence"`
	Likes               int       `json:"likes"`
	Comments            int       `json:"comments"`
	Shares              int       `json:"shares"`
	PostedAt            time.Time `json:"posted_at"`
}

// Engagement returns the post's total interaction count.
func (p SocialPost) Engagement() int {
	return p.Likes + p.Comments + p.Shares
}

// ScoreBreakdown holds the five weighted sub-scores, each on a 0-10 scale.
type ScoreBreakdown struct {
	SERP   float64 `json:"serp"`
	News   float64 `json:"news"`
	Social float64 `json:"social"`
	Trend  float64 `json:"trend"`
	Volume float64 `json:"volume"`
}

// ReputationScore is one composite score for a client over an evaluation
// period. Rows are insert-only; recalculation writes a new row.
type ReputationScore struct {
	ID          string         `json:"id"`
	ClientID    string         `json:"client_id"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Score       float64        `json:"score"` // 0-100, 2 decimal places
	Breakdown   ScoreBreakdown `json:"breakdown"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Alert is one detected adverse event. SourceType/SourceID optionally
// reference the SERP result, mention, or social post that triggered it.
type Alert struct {
	ID         string      `json:"id"`
	ClientID   string      `json:"client_id"`
	Type       AlertType   `json:"alert_type"`
	Severity   Severity    `json:"severity"`
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	SourceType string      `json:"source_type,omitempty"` // "serp_result", "mention", "social_post"
	SourceID   string      `json:"source_id,omitempty"`
	Status     AlertStatus `json:"status"`
	EmailSent  bool        `json:"email_sent"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ReputationReport is a periodic per-client summary sent by the notifier.
type ReputationReport struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	Client          Client           `json:"client"`
	Period          string           `json:"period"` // "weekly"
	Score           *ReputationScore `json:"score,omitempty"`
	Trend           TrendDirection   `json:"trend"`
	ActiveAlerts    []Alert          `json:"active_alerts"`
	SentimentCounts map[string]int   `json:"sentiment_counts"`
	TotalMentions   int              `json:"total_mentions"`
}
