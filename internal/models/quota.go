package models

import (
	"time"
)

// UsageQuota is the per-tenant counter of consumed video slots against a
// plan limit. TrackedVideos <= Limit is enforced at admission time by the
// quota enforcer, never retroactively.
type UsageQuota struct {
	OrgID         string    `json:"org_id"`
	Limit         int       `json:"limit"`
	TrackedVideos int       `json:"tracked_videos"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available returns the remaining admissible slots, never negative
func (q *UsageQuota) Available() int {
	if q.TrackedVideos >= q.Limit {
		return 0
	}
	return q.Limit - q.TrackedVideos
}
