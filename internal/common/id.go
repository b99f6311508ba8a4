package common

import (
	"github.com/google/uuid"
)

// NewAccountID generates a unique tracked-account ID with the "acct_" prefix
func NewAccountID() string {
	return "acct_" + uuid.New().String()
}

// NewVideoID generates a unique video record ID with the "vid_" prefix
func NewVideoID() string {
	return "vid_" + uuid.New().String()
}

// NewSessionID generates a unique refresh-session ID with the "sess_" prefix
func NewSessionID() string {
	return "sess_" + uuid.New().String()
}

// NewAuditID generates a unique audit-log entry ID with the "audit_" prefix
func NewAuditID() string {
	return "audit_" + uuid.New().String()
}

// NewSnapshotID generates a unique stat-snapshot ID with the "snap_" prefix
func NewSnapshotID() string {
	return "snap_" + uuid.New().String()
}
