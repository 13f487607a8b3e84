package notifications

import "github.com/repwatch/repwatch/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendReport(report *models.ReputationReport) error
	SendImmediateAlert(alert *models.Alert) error
}
