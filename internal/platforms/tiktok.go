package platforms

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

const tiktokActorID = "clockworks~tiktok-scraper"

var tiktokVideoIDPattern = regexp.MustCompile(`/video/(\d+)`)

// TikTokAdapter normalizes TikTok actor output
type TikTokAdapter struct{}

// NewTikTokAdapter creates a new TikTok adapter
func NewTikTokAdapter() *TikTokAdapter {
	return &TikTokAdapter{}
}

func (a *TikTokAdapter) Platform() models.Platform {
	return models.PlatformTikTok
}

// Flaky reports true: TikTok scraping hits anti-bot defenses often enough
// that calls are wrapped in the retry policy.
func (a *TikTokAdapter) Flaky() bool {
	return true
}

func (a *TikTokAdapter) BuildProfileRequest(username string) (*interfaces.ActorRequest, error) {
	username = models.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	return &interfaces.ActorRequest{
		ActorID: tiktokActorID,
		Input: map[string]interface{}{
			"profiles":             []string{username},
			"resultsPerPage":       50,
			"shouldDownloadVideos": false,
		},
	}, nil
}

func (a *TikTokAdapter) BuildVideoRequest(url string) (*interfaces.ActorRequest, error) {
	if url == "" {
		return nil, fmt.Errorf("video URL is required")
	}
	return &interfaces.ActorRequest{
		ActorID: tiktokActorID,
		Input: map[string]interface{}{
			"postURLs":             []string{url},
			"shouldDownloadVideos": false,
		},
	}, nil
}

func (a *TikTokAdapter) ParseVideos(items []json.RawMessage) ([]*models.CanonicalVideo, error) {
	videos := make([]*models.CanonicalVideo, 0, len(items))
	for _, raw := range items {
		m := decodeItem(raw)

		externalID := pickString(m, "id", "video_id")
		url := pickString(m, "webVideoUrl", "url")
		if externalID == "" {
			if match := tiktokVideoIDPattern.FindStringSubmatch(url); len(match) == 2 {
				externalID = match[1]
			}
		}
		if externalID == "" {
			continue
		}

		caption := pickString(m, "text", "desc", "caption")
		thumbnail := pickString(m, "covers.default", "videoMeta.coverUrl", "cover")
		if thumbnail == "" {
			thumbnail = scanImageURL(caption)
		}

		videos = append(videos, &models.CanonicalVideo{
			ExternalID:   externalID,
			URL:          url,
			Caption:      caption,
			Username:     models.NormalizeUsername(pickString(m, "authorMeta.name", "author.uniqueId", "author")),
			ThumbnailURL: thumbnail,
			Views:        pickInt64(m, "playCount", "play_count", "viewCount", "view_count", "stats.playCount"),
			Likes:        pickInt64(m, "diggCount", "digg_count", "likeCount", "stats.diggCount"),
			Comments:     pickInt64(m, "commentCount", "comment_count", "stats.commentCount"),
			Shares:       pickInt64(m, "shareCount", "share_count", "stats.shareCount"),
			UploadedAt:   pickTime(m, "createTimeISO", "createTime", "create_time"),
			Profile:      a.parseOwner(m),
		})
	}
	return videos, nil
}

func (a *TikTokAdapter) ParseProfile(items []json.RawMessage) (*models.CanonicalProfile, error) {
	for _, raw := range items {
		m := decodeItem(raw)
		if profile := a.parseOwner(m); profile != nil {
			return profile, nil
		}
	}
	return nil, fmt.Errorf("no profile data in actor output")
}

// parseOwner extracts owner profile fields when the payload carries them
func (a *TikTokAdapter) parseOwner(m map[string]interface{}) *models.CanonicalProfile {
	username := models.NormalizeUsername(pickString(m, "authorMeta.name", "author.uniqueId"))
	if username == "" {
		return nil
	}
	return &models.CanonicalProfile{
		Username:       username,
		DisplayName:    pickString(m, "authorMeta.nickName", "author.nickname"),
		ProfilePicture: pickString(m, "authorMeta.avatar", "author.avatarLarger", "author.avatarThumb"),
		FollowerCount:  pickInt64(m, "authorMeta.fans", "authorStats.followerCount", "author.fans"),
	}
}
