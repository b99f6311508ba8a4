package models

import (
	"time"
)

// VideoSyncStatus represents the state of a video record's refresh lifecycle
type VideoSyncStatus string

const (
	VideoSyncPending    VideoSyncStatus = "pending"
	VideoSyncProcessing VideoSyncStatus = "processing"
	VideoSyncCompleted  VideoSyncStatus = "completed"
	VideoSyncFailed     VideoSyncStatus = "failed"
)

// VideoMaxRetries is the fixed retry ceiling for video processing.
// After this many failures the record stays terminal failed.
const VideoMaxRetries = 3

// VideoRecord represents one tracked post/video.
//
// Sync state machine:
//
//	pending -> processing -> {completed | failed}
//
// Failed videos with retries remaining are re-queued to pending; after
// VideoMaxRetries failures the record is terminal failed.
type VideoRecord struct {
	ID       string   `json:"id"`
	OrgID    string   `json:"org_id"`
	Platform Platform `json:"platform"`
	// SourceURL is the submitted content URL
	SourceURL string `json:"source_url"`
	// ExternalID is the platform's canonical id for the post.
	// Upserts are keyed by platform+external id.
	ExternalID string `json:"external_id"`
	// AccountID is empty for standalone submissions made before an account exists
	AccountID string `json:"account_id,omitempty"`
	Title     string `json:"title,omitempty"`
	// Thumbnail is either empty or a durable-storage URL, never a platform
	// CDN URL. CDN URLs expire and a cached broken link is worse than none.
	Thumbnail  string     `json:"thumbnail,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`

	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`

	SyncStatus     VideoSyncStatus `json:"sync_status"`
	SyncRetryCount int             `json:"sync_retry_count"`
	SyncError      string          `json:"sync_error,omitempty"`

	AddedAt       time.Time  `json:"added_at"`
	LastRefreshed *time.Time `json:"last_refreshed,omitempty"`
}

// BeginProcessing moves a pending video into the in-progress state
func (v *VideoRecord) BeginProcessing() bool {
	if v.SyncStatus != VideoSyncPending {
		return false
	}
	v.SyncStatus = VideoSyncProcessing
	v.SyncError = ""
	return true
}

// CompleteProcessing finalizes a successful refresh
func (v *VideoRecord) CompleteProcessing(now time.Time) {
	v.SyncStatus = VideoSyncCompleted
	v.SyncRetryCount = 0
	v.SyncError = ""
	v.LastRefreshed = &now
}

// RecordFailure increments the retry counter and routes the video either
// back to pending or to terminal failed. Returns true when terminal.
func (v *VideoRecord) RecordFailure(errMsg string) bool {
	v.SyncRetryCount++
	v.SyncError = errMsg
	if v.SyncRetryCount >= VideoMaxRetries {
		v.SyncStatus = VideoSyncFailed
		return true
	}
	v.SyncStatus = VideoSyncPending
	return false
}

// HasRealData reports whether the record ever acquired actual content.
// Records that never did are cleanup candidates once past the grace period.
func (v *VideoRecord) HasRealData() bool {
	return v.Views > 0 || v.Likes > 0 || v.Comments > 0 || v.Shares > 0 ||
		v.Title != "" || v.Thumbnail != ""
}
