package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport sends a periodic reputation report via configured channels
func (s *Service) SendReport(report *models.ReputationReport) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildReportTeamsMessage(report)); err != nil {
			logrus.Errorf("Failed to send Teams report: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent reputation report for %s to Teams", report.Client.Name)
		}
	}

	if s.config.NotificationEmail != "" {
		subject := fmt.Sprintf("Reputation Report - %s", report.Client.Name)
		htmlBody, err := s.buildReportHTML(report)
		if err != nil {
			return fmt.Errorf("failed to build report HTML: %w", err)
		}
		if err := s.sendEmail(subject, s.buildReportText(report), htmlBody); err != nil {
			logrus.Errorf("Failed to send report email: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Sent reputation report for %s via email", report.Client.Name)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SendImmediateAlert delivers a single critical alert out of band.
func (s *Service) SendImmediateAlert(alert *models.Alert) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildAlertTeamsMessage(alert)); err != nil {
			logrus.Errorf("Failed to send Teams alert: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent immediate %s alert to Teams: %s", alert.Severity, alert.Title)
		}
	}

	if s.config.NotificationEmail != "" {
		subject := fmt.Sprintf("[%s] Reputation Alert: %s", strings.ToUpper(string(alert.Severity)), alert.Title)
		text := fmt.Sprintf("%s\n\n%s\n\nDetected: %s\n", alert.Title, alert.Message,
			alert.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
		htmlBody, err := s.buildAlertHTML(alert)
		if err != nil {
			return fmt.Errorf("failed to build alert HTML: %w", err)
		}
		if err := s.sendEmail(subject, text, htmlBody); err != nil {
			logrus.Errorf("Failed to send alert email: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Sent immediate %s alert via email: %s", alert.Severity, alert.Title)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) postToTeams(message *TeamsMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildReportTeamsMessage(report *models.ReputationReport) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Reputation Report - %s", report.Client.Name),
		Text:    fmt.Sprintf("%s report generated %s", strings.Title(report.Period), report.GeneratedAt.Format("2006-01-02")),
	}

	facts := []TeamsFact{
		{Name: "Trend", Value: string(report.Trend)},
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", report.TotalMentions)},
		{Name: "Active Alerts", Value: fmt.Sprintf("%d", len(report.ActiveAlerts))},
	}
	if report.Score != nil {
		facts = append([]TeamsFact{
			{Name: "Composite Score", Value: fmt.Sprintf("%.2f / 100", report.Score.Score)},
		}, facts...)
	}
	for sentiment, count := range report.SentimentCounts {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("%s Mentions", strings.Title(sentiment)),
			Value: fmt.Sprintf("%d", count),
		})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.ActiveAlerts) > 0 {
		var lines []string
		limit := 5
		if len(report.ActiveAlerts) < limit {
			limit = len(report.ActiveAlerts)
		}
		for i := 0; i < limit; i++ {
			alert := report.ActiveAlerts[i]
			lines = append(lines, fmt.Sprintf("**[%s]** %s", strings.ToUpper(string(alert.Severity)), alert.Title))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Active Alerts",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildAlertTeamsMessage(alert *models.Alert) *TeamsMessage {
	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Text:    alert.Message,
		Sections: []TeamsSection{{
			Facts: []TeamsFact{
				{Name: "Type", Value: string(alert.Type)},
				{Name: "Severity", Value: string(alert.Severity)},
				{Name: "Detected", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
			},
			Markdown: true,
		}},
	}
}

func (s *Service) sendEmail(subject, textBody, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildReportHTML(report *models.ReputationReport) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reputation Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .score { font-size: 2em; font-weight: bold; }
        .alert { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .alert-title { font-weight: bold; margin-bottom: 5px; }
        .alert-meta { color: #666; font-size: 0.9em; }
        .critical { border-left-color: #d13438; }
        .high { border-left-color: #ca5010; }
        .medium { border-left-color: #ffb900; }
        .low { border-left-color: #107c10; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Reputation Report - {{.Client.Name}}</h1>
        <p>{{.Period | title}} report generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        {{if .Score}}
        <p class="score">{{printf "%.2f" .Score.Score}} / 100</p>
        <p><strong>SERP:</strong> {{printf "%.2f" .Score.Breakdown.SERP}} |
           <strong>News:</strong> {{printf "%.2f" .Score.Breakdown.News}} |
           <strong>Social:</strong> {{printf "%.2f" .Score.Breakdown.Social}} |
           <strong>Trend:</strong> {{printf "%.2f" .Score.Breakdown.Trend}} |
           <strong>Volume:</strong> {{printf "%.2f" .Score.Breakdown.Volume}}</p>
        {{end}}
        <p><strong>Trend:</strong> {{.Trend}}</p>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        {{range $sentiment, $count := .SentimentCounts}}
            <p><strong>{{$sentiment | title}} Mentions:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .ActiveAlerts}}
    <h2>Active Alerts</h2>
    {{range $index, $alert := .ActiveAlerts}}
        {{if lt $index 10}}
        <div class="alert {{$alert.Severity}}">
            <div class="alert-title">[{{$alert.Severity | upper}}] {{$alert.Title}}</div>
            <div class="alert-meta">{{$alert.Type}} | {{$alert.CreatedAt.Format "Jan 2, 2006"}}</div>
            <p>{{$alert.Message | truncate 200}}</p>
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by RepWatch.</small></p>
</body>
</html>
`

	t := template.New("report").Funcs(templateFuncs())
	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildAlertHTML(alert *models.Alert) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .banner { background-color: #d13438; color: white; padding: 20px; border-radius: 5px; }
        .detail { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="banner">
        <h1>[{{.Severity | upper}}] {{.Title}}</h1>
    </div>
    <div class="detail">
        <p>{{.Message}}</p>
        <p><strong>Type:</strong> {{.Type}}</p>
        <p><strong>Detected:</strong> {{.CreatedAt.Format "2006-01-02 15:04:05 UTC"}}</p>
    </div>
    <p><small>This alert was generated automatically by RepWatch.</small></p>
</body>
</html>
`

	t := template.New("alert").Funcs(templateFuncs())
	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, alert); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"title": strings.Title,
		"upper": func(v interface{}) string {
			return strings.ToUpper(fmt.Sprintf("%v", v))
		},
		"truncate": func(length int, s string) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
	}
}

func (s *Service) buildReportText(report *models.ReputationReport) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Reputation Report - %s\n", report.Client.Name))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	if report.Score != nil {
		text.WriteString(fmt.Sprintf("Composite Score: %.2f / 100\n", report.Score.Score))
		text.WriteString(fmt.Sprintf("Breakdown: serp=%.2f news=%.2f social=%.2f trend=%.2f volume=%.2f\n",
			report.Score.Breakdown.SERP, report.Score.Breakdown.News, report.Score.Breakdown.Social,
			report.Score.Breakdown.Trend, report.Score.Breakdown.Volume))
	}
	text.WriteString(fmt.Sprintf("Trend: %s\n", report.Trend))
	text.WriteString(fmt.Sprintf("Total Mentions: %d\n", report.TotalMentions))

	for sentiment, count := range report.SentimentCounts {
		text.WriteString(fmt.Sprintf("%s Mentions: %d\n", strings.Title(sentiment), count))
	}

	if len(report.ActiveAlerts) > 0 {
		text.WriteString("\nACTIVE ALERTS\n")
		text.WriteString("=============\n")

		limit := 10
		if len(report.ActiveAlerts) < limit {
			limit = len(report.ActiveAlerts)
		}

		for i := 0; i < limit; i++ {
			alert := report.ActiveAlerts[i]
			text.WriteString(fmt.Sprintf("\n%d. [%s] %s\n", i+1, strings.ToUpper(string(alert.Severity)), alert.Title))
			text.WriteString(fmt.Sprintf("   Type: %s | Detected: %s\n", alert.Type, alert.CreatedAt.Format("Jan 2, 2006")))
			message := alert.Message
			if len(message) > 200 {
				message = message[:200] + "..."
			}
			text.WriteString(fmt.Sprintf("   %s\n", message))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by RepWatch.\n")

	return text.String()
}
