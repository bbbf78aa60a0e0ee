package entity

import "time"

// Notification levels
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// FlowNotification is a user-facing message produced by flow transitions
type FlowNotification struct {
	FlowKey   string    `json:"flowKey"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
