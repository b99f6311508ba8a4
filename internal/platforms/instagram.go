package platforms

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

const instagramActorID = "apify~instagram-scraper"

var instagramShortcodePattern = regexp.MustCompile(`/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

// InstagramAdapter normalizes Instagram actor output
type InstagramAdapter struct{}

// NewInstagramAdapter creates a new Instagram adapter
func NewInstagramAdapter() *InstagramAdapter {
	return &InstagramAdapter{}
}

func (a *InstagramAdapter) Platform() models.Platform {
	return models.PlatformInstagram
}

// Flaky reports true: Instagram's anti-scraping measures produce frequent
// transient 403 and proxy failures.
func (a *InstagramAdapter) Flaky() bool {
	return true
}

func (a *InstagramAdapter) BuildProfileRequest(username string) (*interfaces.ActorRequest, error) {
	username = models.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	return &interfaces.ActorRequest{
		ActorID: instagramActorID,
		Input: map[string]interface{}{
			"directUrls":   []string{fmt.Sprintf("https://www.instagram.com/%s/", username)},
			"resultsType":  "posts",
			"resultsLimit": 50,
		},
	}, nil
}

func (a *InstagramAdapter) BuildVideoRequest(url string) (*interfaces.ActorRequest, error) {
	if url == "" {
		return nil, fmt.Errorf("video URL is required")
	}
	return &interfaces.ActorRequest{
		ActorID: instagramActorID,
		Input: map[string]interface{}{
			"directUrls":  []string{url},
			"resultsType": "posts",
		},
	}, nil
}

func (a *InstagramAdapter) ParseVideos(items []json.RawMessage) ([]*models.CanonicalVideo, error) {
	videos := make([]*models.CanonicalVideo, 0, len(items))
	for _, raw := range items {
		m := decodeItem(raw)

		externalID := pickString(m, "id", "shortCode", "shortcode")
		url := pickString(m, "url", "postUrl")
		if externalID == "" {
			if match := instagramShortcodePattern.FindStringSubmatch(url); len(match) == 2 {
				externalID = match[1]
			}
		}
		if externalID == "" {
			continue
		}

		caption := pickString(m, "caption", "edge_media_to_caption.edges.0.node.text")

		// Thumbnail fallback chain: direct field, nested display variant,
		// largest entry in the image resource list, then a caption scan
		thumbnail := pickString(m, "displayUrl", "display_url", "thumbnailUrl")
		if thumbnail == "" {
			thumbnail = largestImage(m, "images")
		}
		if thumbnail == "" {
			thumbnail = largestImage(m, "display_resources")
		}
		if thumbnail == "" {
			thumbnail = scanImageURL(caption)
		}

		videos = append(videos, &models.CanonicalVideo{
			ExternalID:   externalID,
			URL:          url,
			Caption:      caption,
			Username:     models.NormalizeUsername(pickString(m, "ownerUsername", "owner.username")),
			ThumbnailURL: thumbnail,
			Views:        pickInt64(m, "playCount", "play_count", "videoViewCount", "video_view_count", "videoPlayCount", "video_play_count"),
			Likes:        pickInt64(m, "likesCount", "likes_count", "edge_liked_by.count"),
			Comments:     pickInt64(m, "commentsCount", "comments_count", "edge_media_to_comment.count"),
			Shares:       pickInt64(m, "sharesCount", "reshareCount"),
			UploadedAt:   pickTime(m, "timestamp", "taken_at_timestamp", "takenAt"),
			Profile:      a.parseOwner(m),
		})
	}
	return videos, nil
}

func (a *InstagramAdapter) ParseProfile(items []json.RawMessage) (*models.CanonicalProfile, error) {
	for _, raw := range items {
		m := decodeItem(raw)
		if profile := a.parseOwner(m); profile != nil {
			return profile, nil
		}
	}
	return nil, fmt.Errorf("no profile data in actor output")
}

func (a *InstagramAdapter) parseOwner(m map[string]interface{}) *models.CanonicalProfile {
	username := models.NormalizeUsername(pickString(m, "ownerUsername", "owner.username", "username"))
	if username == "" {
		return nil
	}
	return &models.CanonicalProfile{
		Username:       username,
		DisplayName:    pickString(m, "ownerFullName", "owner.full_name", "fullName"),
		ProfilePicture: pickString(m, "owner.profile_pic_url", "profilePicUrl", "profilePicUrlHD"),
		FollowerCount:  pickInt64(m, "followersCount", "owner.edge_followed_by.count", "followers"),
	}
}
