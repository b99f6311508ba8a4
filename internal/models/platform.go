package models

import (
	"fmt"
	"strings"
)

// Platform identifies a supported external short-video platform
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
)

// AllPlatforms lists every supported platform
var AllPlatforms = []Platform{
	PlatformTikTok,
	PlatformInstagram,
	PlatformYouTube,
	PlatformTwitter,
}

// ParsePlatform validates and normalizes a platform string
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformTikTok, PlatformInstagram, PlatformYouTube, PlatformTwitter:
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform: %q", s)
}

// NormalizeUsername lower-cases and strips a leading @ from a profile handle
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
