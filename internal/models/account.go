package models

import (
	"time"
)

// AccountSyncStatus represents the state of a tracked account's sync lifecycle
type AccountSyncStatus string

const (
	AccountSyncPending   AccountSyncStatus = "pending"
	AccountSyncSyncing   AccountSyncStatus = "syncing"
	AccountSyncCompleted AccountSyncStatus = "completed"
	AccountSyncFailed    AccountSyncStatus = "failed"
	// AccountSyncError is terminal: retries are exhausted and the account
	// requires an explicit external reset before it is picked up again.
	AccountSyncError AccountSyncStatus = "error"
)

// AggregateStats holds denormalized rollups across an account's tracked videos
type AggregateStats struct {
	TotalVideos   int64 `json:"total_videos"`
	TotalViews    int64 `json:"total_views"`
	TotalLikes    int64 `json:"total_likes"`
	TotalComments int64 `json:"total_comments"`
	TotalShares   int64 `json:"total_shares"`
}

// SyncProgress is a coarse progress indicator for UI polling
type SyncProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// TrackedAccount represents one linked external profile.
//
// Sync state machine:
//
//	pending -> syncing -> {completed | failed | error}
//
// A failed account with retries remaining is re-queued to pending; once
// SyncRetryCount reaches the configured maximum it transitions to the
// terminal "error" state and is skipped by the orchestrator until reset.
type TrackedAccount struct {
	ID        string   `json:"id"`
	OrgID     string   `json:"org_id"`
	ProjectID string   `json:"project_id"`
	Platform  Platform `json:"platform"`
	// Username is stored normalized (lower-case, no leading @)
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	// ProfilePicture must point to durable storage, never a platform CDN URL
	ProfilePicture string         `json:"profile_picture,omitempty"`
	FollowerCount  int64          `json:"follower_count"`
	Stats          AggregateStats `json:"stats"`
	// QuotaExempt bypasses usage-limit enforcement (administrative/demo accounts)
	QuotaExempt bool `json:"quota_exempt,omitempty"`

	SyncStatus     AccountSyncStatus `json:"sync_status"`
	SyncRetryCount int               `json:"sync_retry_count"`
	SyncError      string            `json:"sync_error,omitempty"`
	SyncProgress   SyncProgress      `json:"sync_progress"`

	OwnerID      string     `json:"owner_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// BeginSync moves a pending account into the in-progress state.
// Only the orchestrator may call this.
func (a *TrackedAccount) BeginSync() bool {
	if a.SyncStatus != AccountSyncPending {
		return false
	}
	a.SyncStatus = AccountSyncSyncing
	a.SyncError = ""
	return true
}

// CompleteSync finalizes a successful sync and resets retry bookkeeping
func (a *TrackedAccount) CompleteSync(now time.Time) {
	a.SyncStatus = AccountSyncCompleted
	a.SyncRetryCount = 0
	a.SyncError = ""
	a.SyncProgress.Message = ""
	a.LastSyncedAt = &now
}

// RecordFailure increments the retry counter and routes the account either
// back to pending (retries remaining) or to the terminal error state.
// Returns true when the account went terminal.
func (a *TrackedAccount) RecordFailure(errMsg string, maxRetries int) bool {
	a.SyncRetryCount++
	a.SyncError = errMsg
	if a.SyncRetryCount >= maxRetries {
		a.SyncStatus = AccountSyncError
		return true
	}
	a.SyncStatus = AccountSyncPending
	return false
}

// FailPermanently moves the account straight to the terminal error state,
// skipping the retry loop. Used for failures no amount of retrying can fix,
// such as the tenant's video limit being reached.
func (a *TrackedAccount) FailPermanently(errMsg string) {
	a.SyncStatus = AccountSyncError
	a.SyncError = errMsg
}

// ResetSync re-queues a terminal account for a fresh sync cycle.
// Used by scheduled refreshes (completed accounts) and manual resets (error).
func (a *TrackedAccount) ResetSync() {
	a.SyncStatus = AccountSyncPending
	a.SyncRetryCount = 0
	a.SyncError = ""
	a.SyncProgress = SyncProgress{}
}

// IsTerminal reports whether the account needs external intervention
func (a *TrackedAccount) IsTerminal() bool {
	return a.SyncStatus == AccountSyncError
}
