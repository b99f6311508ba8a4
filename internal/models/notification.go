package models

// ErrorCategory classifies terminal sync failures for notification routing
type ErrorCategory string

const (
	CategoryAccountSync     ErrorCategory = "account_sync"
	CategoryVideoProcessing ErrorCategory = "video_processing"
)

// NotificationPrefs holds per-tenant email alert preferences.
// Quiet hours are expressed as "HH:MM" local times and may wrap midnight
// (e.g. start 22:00, end 07:00).
type NotificationPrefs struct {
	UserID          string `json:"user_id"`
	ErrorAlerts     bool   `json:"error_alerts"`
	AccountAlerts   bool   `json:"account_alerts"`
	VideoAlerts     bool   `json:"video_alerts"`
	QuietHoursStart string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`
	// OverrideEmail replaces the default destination when set
	OverrideEmail string `json:"override_email,omitempty"`
}

// DefaultNotificationPrefs returns the prefs applied when a tenant has none
func DefaultNotificationPrefs(userID string) *NotificationPrefs {
	return &NotificationPrefs{
		UserID:        userID,
		ErrorAlerts:   true,
		AccountAlerts: true,
		VideoAlerts:   true,
	}
}
