package models

import (
	"time"
)

// AuditLogEntry is an immutable record of a terminal sync failure.
// Entries are written regardless of email notification outcome.
type AuditLogEntry struct {
	ID            string        `json:"id"`
	OrgID         string        `json:"org_id"`
	Category      ErrorCategory `json:"category"`
	EntityID      string        `json:"entity_id"`
	EntityName    string        `json:"entity_name,omitempty"`
	Platform      Platform      `json:"platform,omitempty"`
	AttemptNumber int           `json:"attempt_number"`
	Message       string        `json:"message"`
	CreatedAt     time.Time     `json:"created_at"`
}
