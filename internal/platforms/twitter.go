package platforms

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

const twitterActorID = "apidojo~tweet-scraper"

var twitterStatusIDPattern = regexp.MustCompile(`/status/(\d+)`)

// TwitterAdapter normalizes Twitter/X actor output
type TwitterAdapter struct{}

// NewTwitterAdapter creates a new Twitter adapter
func NewTwitterAdapter() *TwitterAdapter {
	return &TwitterAdapter{}
}

func (a *TwitterAdapter) Platform() models.Platform {
	return models.PlatformTwitter
}

func (a *TwitterAdapter) Flaky() bool {
	return false
}

func (a *TwitterAdapter) BuildProfileRequest(username string) (*interfaces.ActorRequest, error) {
	username = models.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	return &interfaces.ActorRequest{
		ActorID: twitterActorID,
		Input: map[string]interface{}{
			"twitterHandles": []string{username},
			"maxItems":       50,
		},
	}, nil
}

func (a *TwitterAdapter) BuildVideoRequest(url string) (*interfaces.ActorRequest, error) {
	if url == "" {
		return nil, fmt.Errorf("video URL is required")
	}
	return &interfaces.ActorRequest{
		ActorID: twitterActorID,
		Input: map[string]interface{}{
			"startUrls": []string{url},
			"maxItems":  1,
		},
	}, nil
}

func (a *TwitterAdapter) ParseVideos(items []json.RawMessage) ([]*models.CanonicalVideo, error) {
	videos := make([]*models.CanonicalVideo, 0, len(items))
	for _, raw := range items {
		m := decodeItem(raw)

		externalID := pickString(m, "id", "id_str", "tweetId")
		url := pickString(m, "url", "twitterUrl")
		if externalID == "" {
			if match := twitterStatusIDPattern.FindStringSubmatch(url); len(match) == 2 {
				externalID = match[1]
			}
		}
		if externalID == "" {
			continue
		}

		caption := pickString(m, "text", "full_text", "fullText")
		thumbnail := pickString(m, "media.0.media_url_https", "extendedEntities.media.0.media_url_https")
		if thumbnail == "" {
			thumbnail = largestImage(m, "photos")
		}
		if thumbnail == "" {
			thumbnail = scanImageURL(caption)
		}

		videos = append(videos, &models.CanonicalVideo{
			ExternalID:   externalID,
			URL:          url,
			Caption:      caption,
			Username:     models.NormalizeUsername(pickString(m, "author.userName", "author.username", "user.screen_name")),
			ThumbnailURL: thumbnail,
			Views:        pickInt64(m, "viewCount", "view_count", "views"),
			Likes:        pickInt64(m, "likeCount", "like_count", "favorite_count"),
			Comments:     pickInt64(m, "replyCount", "reply_count"),
			Shares:       pickInt64(m, "retweetCount", "retweet_count"),
			UploadedAt:   pickTime(m, "createdAt", "created_at"),
			Profile:      a.parseOwner(m),
		})
	}
	return videos, nil
}

func (a *TwitterAdapter) ParseProfile(items []json.RawMessage) (*models.CanonicalProfile, error) {
	for _, raw := range items {
		m := decodeItem(raw)
		if profile := a.parseOwner(m); profile != nil {
			return profile, nil
		}
	}
	return nil, fmt.Errorf("no profile data in actor output")
}

func (a *TwitterAdapter) parseOwner(m map[string]interface{}) *models.CanonicalProfile {
	username := models.NormalizeUsername(pickString(m, "author.userName", "author.username", "user.screen_name"))
	if username == "" {
		return nil
	}
	return &models.CanonicalProfile{
		Username:       username,
		DisplayName:    pickString(m, "author.name", "user.name"),
		ProfilePicture: pickString(m, "author.profilePicture", "user.profile_image_url_https"),
		FollowerCount:  pickInt64(m, "author.followers", "user.followers_count"),
	}
}
