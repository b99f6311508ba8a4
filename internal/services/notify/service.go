// Package notify records terminal sync failures and alerts tenant contacts.
package notify

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// Service writes failure audit records and conditionally emails the tenant.
// The audit write is unconditional; email is best-effort and its failure is
// logged, never propagated into the pipeline.
type Service struct {
	audit      interfaces.AuditStorage
	prefs      interfaces.PrefsStorage
	mailer     interfaces.Mailer
	adminEmail string
	logger     arbor.ILogger

	// now is replaceable in tests for quiet-hours checks
	now func() time.Time
}

// NewService creates a notification service
func NewService(audit interfaces.AuditStorage, prefs interfaces.PrefsStorage, mailer interfaces.Mailer, config *common.NotifyConfig, logger arbor.ILogger) *Service {
	return &Service{
		audit:      audit,
		prefs:      prefs,
		mailer:     mailer,
		adminEmail: config.AdminEmail,
		logger:     logger,
		now:        time.Now,
	}
}

// NotifyTerminalFailure records the failure and conditionally sends an email.
// The audit write and the email are independent legs and run concurrently;
// neither outcome affects the other.
func (s *Service) NotifyTerminalFailure(ctx context.Context, details *interfaces.ErrorDetails, userID string) {
	entry := &models.AuditLogEntry{
		OrgID:         details.OrgID,
		Category:      details.Category,
		EntityID:      details.EntityID,
		EntityName:    details.EntityName,
		Platform:      details.Platform,
		AttemptNumber: details.AttemptNumber,
		Message:       details.Message,
		CreatedAt:     s.now(),
	}

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.audit.Append(ctx, entry); err != nil {
			s.logger.Error().
				Str("org_id", details.OrgID).
				Str("entity_id", details.EntityID).
				Err(err).
				Msg("Failed to write failure audit record")
		}
	}()
	go func() {
		defer wg.Done()
		s.sendEmail(ctx, details, userID)
	}()
	wg.Wait()
}

func (s *Service) sendEmail(ctx context.Context, details *interfaces.ErrorDetails, userID string) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		s.logger.Warn().Str("user_id", userID).Err(err).Msg("Failed to load notification prefs, using defaults")
	}
	if prefs == nil {
		prefs = models.DefaultNotificationPrefs(userID)
	}

	destination, reason := s.resolveDelivery(prefs, details.Category)
	if destination == "" {
		s.logger.Debug().
			Str("org_id", details.OrgID).
			Str("entity_id", details.EntityID).
			Str("reason", reason).
			Msg("Failure email suppressed")
		return
	}

	if !s.mailer.IsConfigured() {
		s.logger.Debug().Msg("Mailer not configured, skipping failure email")
		return
	}

	subject := fmt.Sprintf("Sync failure: %s", details.EntityName)
	if details.EntityName == "" {
		subject = fmt.Sprintf("Sync failure: %s", details.EntityID)
	}

	if err := s.mailer.SendHTMLEmail(ctx, destination, subject, s.htmlBody(details), s.textBody(details)); err != nil {
		s.logger.Warn().
			Str("to", destination).
			Str("entity_id", details.EntityID).
			Err(err).
			Msg("Failed to send failure email")
		return
	}

	s.logger.Info().
		Str("to", destination).
		Str("entity_id", details.EntityID).
		Msg("Failure notification sent")
}

// resolveDelivery returns the destination address, or "" with a suppression
// reason when the tenant's preferences block this alert.
func (s *Service) resolveDelivery(prefs *models.NotificationPrefs, category models.ErrorCategory) (string, string) {
	if !prefs.ErrorAlerts {
		return "", "error alerts disabled"
	}

	switch category {
	case models.CategoryAccountSync:
		if !prefs.AccountAlerts {
			return "", "account alerts disabled"
		}
	case models.CategoryVideoProcessing:
		if !prefs.VideoAlerts {
			return "", "video alerts disabled"
		}
	}

	if inQuietHours(prefs.QuietHoursStart, prefs.QuietHoursEnd, s.now()) {
		return "", "within quiet hours"
	}

	if prefs.OverrideEmail != "" {
		return prefs.OverrideEmail, ""
	}
	return s.adminEmail, ""
}

// inQuietHours reports whether now falls inside the [start, end) window.
// Times are "HH:MM"; a start later than the end wraps midnight.
func inQuietHours(start, end string, now time.Time) bool {
	if start == "" || end == "" {
		return false
	}
	startMin, ok1 := parseClock(start)
	endMin, ok2 := parseClock(end)
	if !ok1 || !ok2 || startMin == endMin {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// Window wraps midnight, e.g. 22:00-07:00
	return nowMin >= startMin || nowMin < endMin
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func (s *Service) htmlBody(details *interfaces.ErrorDetails) string {
	return fmt.Sprintf(`<html><body>
<h2>Sync failure</h2>
<table cellpadding="4">
<tr><td><b>Entity</b></td><td>%s</td></tr>
<tr><td><b>Platform</b></td><td>%s</td></tr>
<tr><td><b>Category</b></td><td>%s</td></tr>
<tr><td><b>Attempt</b></td><td>%d</td></tr>
<tr><td><b>Error</b></td><td>%s</td></tr>
</table>
<p>The record is now in a terminal state and will not retry automatically.</p>
</body></html>`,
		details.EntityName, details.Platform, details.Category, details.AttemptNumber, details.Message)
}

func (s *Service) textBody(details *interfaces.ErrorDetails) string {
	return fmt.Sprintf("Sync failure\n\nEntity: %s\nPlatform: %s\nCategory: %s\nAttempt: %d\nError: %s\n\nThe record is now in a terminal state and will not retry automatically.",
		details.EntityName, details.Platform, details.Category, details.AttemptNumber, details.Message)
}
