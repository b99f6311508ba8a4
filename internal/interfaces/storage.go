package interfaces

import (
	"context"

	"github.com/viewdeck/viewdeck/internal/models"
)

// AccountStorage persists tracked accounts
type AccountStorage interface {
	Save(ctx context.Context, account *models.TrackedAccount) error
	Get(ctx context.Context, id string) (*models.TrackedAccount, error)
	// FindByHandle looks up an account by org, platform and normalized username
	FindByHandle(ctx context.Context, orgID string, platform models.Platform, username string) (*models.TrackedAccount, error)
	// GetPendingBatch returns up to limit pending accounts whose retry count
	// is below maxRetries, oldest last-synced first
	GetPendingBatch(ctx context.Context, limit, maxRetries int) ([]*models.TrackedAccount, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.TrackedAccount, error)
	ListByOrg(ctx context.Context, orgID string) ([]*models.TrackedAccount, error)
	// ListOrgIDs returns the distinct org IDs that have tracked accounts
	ListOrgIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// VideoStorage persists video records
type VideoStorage interface {
	// Upsert saves a video keyed by platform+external id; syncing the same
	// external id twice yields exactly one record. Standalone submissions
	// whose external id has not resolved yet are keyed by record id.
	Upsert(ctx context.Context, video *models.VideoRecord) error
	Get(ctx context.Context, id string) (*models.VideoRecord, error)
	FindByExternalID(ctx context.Context, platform models.Platform, externalID string) (*models.VideoRecord, error)
	// GetPendingBatch returns up to limit pending videos with retries remaining
	GetPendingBatch(ctx context.Context, limit int) ([]*models.VideoRecord, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.VideoRecord, error)
	ListByOrg(ctx context.Context, orgID string) ([]*models.VideoRecord, error)
	Delete(ctx context.Context, id string) error
}

// SessionStorage persists org-wide refresh sessions
type SessionStorage interface {
	Save(ctx context.Context, session *models.RefreshSession) error
	Get(ctx context.Context, id string) (*models.RefreshSession, error)
	// GetLatestCompleted returns the most recent completed session for an org,
	// used as the delta baseline for the next run. Nil when none exists.
	GetLatestCompleted(ctx context.Context, orgID string) (*models.RefreshSession, error)
}

// QuotaStorage persists per-tenant usage counters
type QuotaStorage interface {
	Get(ctx context.Context, orgID string) (*models.UsageQuota, error)
	Save(ctx context.Context, quota *models.UsageQuota) error
	// IncrementUsage atomically adds n consumed slots to the org's counter.
	// Counter updates are serialized so concurrent project dispatches never
	// lose an increment.
	IncrementUsage(ctx context.Context, orgID string, n int) error
	// ReleaseUsage returns n consumed slots, flooring the counter at zero.
	// Used to reconcile the counter when an admitted record fails to persist.
	ReleaseUsage(ctx context.Context, orgID string, n int) error
}

// AuditStorage appends immutable failure audit records
type AuditStorage interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*models.AuditLogEntry, error)
}

// PrefsStorage persists per-tenant notification preferences
type PrefsStorage interface {
	// Get returns nil (no error) when the tenant has no stored preferences
	Get(ctx context.Context, userID string) (*models.NotificationPrefs, error)
	Save(ctx context.Context, prefs *models.NotificationPrefs) error
}

// SnapshotStorage persists per-video engagement time series
type SnapshotStorage interface {
	Append(ctx context.Context, snapshot *models.StatSnapshot) error
	ListByVideo(ctx context.Context, videoID string) ([]*models.StatSnapshot, error)
	DeleteByVideo(ctx context.Context, videoID string) (int, error)
}

// StorageManager aggregates all typed storages over one database connection
type StorageManager interface {
	Accounts() AccountStorage
	Videos() VideoStorage
	Sessions() SessionStorage
	Quotas() QuotaStorage
	Audit() AuditStorage
	Prefs() PrefsStorage
	Snapshots() SnapshotStorage
	Close() error
}
