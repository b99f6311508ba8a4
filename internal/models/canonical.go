package models

import (
	"time"
)

// CanonicalVideo is the normalized video shape produced by platform
// adapters, independent of any platform's raw schema.
type CanonicalVideo struct {
	ExternalID string
	URL        string
	Caption    string
	Username   string
	// ThumbnailURL is the raw (possibly ephemeral) origin URL; the media
	// cache re-hosts it before persistence.
	ThumbnailURL string
	Views        int64
	Likes        int64
	Comments     int64
	Shares       int64
	UploadedAt   *time.Time
	// Profile carries owner fields when the raw payload includes them,
	// used for opportunistic account enrichment.
	Profile *CanonicalProfile
}

// CanonicalProfile is the normalized profile shape produced by platform
// adapters.
type CanonicalProfile struct {
	Username       string
	DisplayName    string
	ProfilePicture string
	FollowerCount  int64
}
