package interfaces

import (
	"context"

	"github.com/viewdeck/viewdeck/internal/models"
)

// ErrorDetails describes a terminal sync failure for audit and notification
type ErrorDetails struct {
	OrgID         string
	Category      models.ErrorCategory
	EntityID      string
	EntityName    string
	Platform      models.Platform
	AttemptNumber int
	Message       string
}

// Notifier records terminal failures and conditionally alerts the tenant.
// The audit write always happens; email is best-effort and never propagates
// failure into the pipeline.
type Notifier interface {
	NotifyTerminalFailure(ctx context.Context, details *ErrorDetails, userID string)
}

// Mailer delivers outbound notification email
type Mailer interface {
	IsConfigured() bool
	SendHTMLEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
}
