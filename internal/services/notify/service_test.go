package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

type memAudit struct {
	entries []*models.AuditLogEntry
	err     error
}

func (m *memAudit) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudit) ListByOrg(ctx context.Context, orgID string, limit int) ([]*models.AuditLogEntry, error) {
	return m.entries, nil
}

type memPrefs struct {
	prefs map[string]*models.NotificationPrefs
}

func (m *memPrefs) Get(ctx context.Context, userID string) (*models.NotificationPrefs, error) {
	return m.prefs[userID], nil
}

func (m *memPrefs) Save(ctx context.Context, p *models.NotificationPrefs) error {
	m.prefs[p.UserID] = p
	return nil
}

type fakeMailer struct {
	configured bool
	sent       []string // destination addresses
	err        error
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) SendHTMLEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func newTestService(prefs map[string]*models.NotificationPrefs, mailer *fakeMailer, at time.Time) (*Service, *memAudit) {
	audit := &memAudit{}
	svc := NewService(audit, &memPrefs{prefs: prefs}, mailer, &common.NotifyConfig{AdminEmail: "alerts@viewdeck.app"}, arbor.NewLogger())
	svc.now = func() time.Time { return at }
	return svc, audit
}

func details() *interfaces.ErrorDetails {
	return &interfaces.ErrorDetails{
		OrgID:         "org-1",
		Category:      models.CategoryAccountSync,
		EntityID:      "acct-1",
		EntityName:    "someuser",
		Platform:      models.PlatformTikTok,
		AttemptNumber: 3,
		Message:       "retries exhausted after 3 attempts: HTTP 403 Forbidden",
	}
}

var noon = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestNotifyWritesAuditAndSendsEmail(t *testing.T) {
	mailer := &fakeMailer{configured: true}
	svc, audit := newTestService(nil, mailer, noon)

	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")

	require.Len(t, audit.entries, 1)
	assert.Equal(t, 3, audit.entries[0].AttemptNumber)
	assert.Equal(t, models.CategoryAccountSync, audit.entries[0].Category)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alerts@viewdeck.app", mailer.sent[0], "admin address is the default destination")
}

func TestNotifyAuditAlwaysWrittenWhenEmailSuppressed(t *testing.T) {
	prefs := map[string]*models.NotificationPrefs{
		"user-1": {UserID: "user-1", ErrorAlerts: false},
	}
	mailer := &fakeMailer{configured: true}
	svc, audit := newTestService(prefs, mailer, noon)

	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")

	assert.Len(t, audit.entries, 1, "audit write happens regardless of email outcome")
	assert.Empty(t, mailer.sent)
}

func TestNotifyCategoryFlagSuppresses(t *testing.T) {
	prefs := map[string]*models.NotificationPrefs{
		"user-1": {UserID: "user-1", ErrorAlerts: true, AccountAlerts: false, VideoAlerts: true},
	}
	mailer := &fakeMailer{configured: true}
	svc, _ := newTestService(prefs, mailer, noon)

	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")
	assert.Empty(t, mailer.sent, "account-sync alerts disabled for this tenant")

	videoDetails := details()
	videoDetails.Category = models.CategoryVideoProcessing
	svc.NotifyTerminalFailure(context.Background(), videoDetails, "user-1")
	assert.Len(t, mailer.sent, 1, "video alerts remain enabled")
}

func TestNotifyOverrideEmail(t *testing.T) {
	prefs := map[string]*models.NotificationPrefs{
		"user-1": {UserID: "user-1", ErrorAlerts: true, AccountAlerts: true, VideoAlerts: true, OverrideEmail: "ops@tenant.example"},
	}
	mailer := &fakeMailer{configured: true}
	svc, _ := newTestService(prefs, mailer, noon)

	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ops@tenant.example", mailer.sent[0])
}

func TestNotifyMailerFailureNeverPropagates(t *testing.T) {
	mailer := &fakeMailer{configured: true, err: errors.New("smtp down")}
	svc, audit := newTestService(nil, mailer, noon)

	// Must not panic or surface the error
	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")
	assert.Len(t, audit.entries, 1)
}

func TestNotifyUnconfiguredMailerSkipsEmail(t *testing.T) {
	mailer := &fakeMailer{configured: false}
	svc, audit := newTestService(nil, mailer, noon)

	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")
	assert.Len(t, audit.entries, 1)
	assert.Empty(t, mailer.sent)
}

// blockingAudit holds its write until released, to observe overlap with the
// email leg
type blockingAudit struct {
	release chan struct{}
	entries []*models.AuditLogEntry
}

func (b *blockingAudit) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	<-b.release
	b.entries = append(b.entries, entry)
	return nil
}

func (b *blockingAudit) ListByOrg(ctx context.Context, orgID string, limit int) ([]*models.AuditLogEntry, error) {
	return b.entries, nil
}

// signalMailer releases the blocked audit write when the email goes out
type signalMailer struct {
	release chan struct{}
	sent    int
}

func (m *signalMailer) IsConfigured() bool { return true }

func (m *signalMailer) SendHTMLEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	m.sent++
	close(m.release)
	return nil
}

func TestNotifyAuditAndEmailRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	audit := &blockingAudit{release: release}
	mailer := &signalMailer{release: release}

	svc := NewService(audit, &memPrefs{}, mailer, &common.NotifyConfig{AdminEmail: "alerts@viewdeck.app"}, arbor.NewLogger())
	svc.now = func() time.Time { return noon }

	// The audit write waits for the email; sequential legs would never finish
	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")

	assert.Len(t, audit.entries, 1)
	assert.Equal(t, 1, mailer.sent)
}

func TestInQuietHours(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 8, 28, h, m, 0, 0, time.UTC) }

	// Plain window
	assert.True(t, inQuietHours("09:00", "17:00", at(12, 0)))
	assert.False(t, inQuietHours("09:00", "17:00", at(8, 59)))
	assert.False(t, inQuietHours("09:00", "17:00", at(17, 0)), "end is exclusive")

	// Window wrapping midnight
	assert.True(t, inQuietHours("22:00", "07:00", at(23, 30)))
	assert.True(t, inQuietHours("22:00", "07:00", at(2, 0)))
	assert.False(t, inQuietHours("22:00", "07:00", at(12, 0)))
	assert.False(t, inQuietHours("22:00", "07:00", at(7, 0)))

	// Missing or malformed config disables the window
	assert.False(t, inQuietHours("", "07:00", at(2, 0)))
	assert.False(t, inQuietHours("22:00", "", at(23, 0)))
	assert.False(t, inQuietHours("not-a-time", "07:00", at(2, 0)))
}

func TestNotifyQuietHoursSuppressEmail(t *testing.T) {
	prefs := map[string]*models.NotificationPrefs{
		"user-1": {UserID: "user-1", ErrorAlerts: true, AccountAlerts: true, VideoAlerts: true, QuietHoursStart: "22:00", QuietHoursEnd: "07:00"},
	}
	mailer := &fakeMailer{configured: true}
	svc, audit := newTestService(prefs, mailer, time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC))

	svc.NotifyTerminalFailure(context.Background(), details(), "user-1")
	assert.Empty(t, mailer.sent, "alerts inside quiet hours are suppressed")
	assert.Len(t, audit.entries, 1)
}
