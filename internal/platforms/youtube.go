package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

var youtubeVideoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
}

// YouTubeAdapter fetches metadata through the first-party Data API rather
// than the generic scraping actor. The official API is keyed, stable and
// never behind anti-bot defenses, so it is preferred for reliability.
type YouTubeAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewYouTubeAdapter creates a Data API backed adapter
func NewYouTubeAdapter(config *common.YouTubeConfig, logger arbor.ILogger) *YouTubeAdapter {
	timeout := 30 * time.Second
	if config.RequestTimeout > 0 {
		timeout = config.RequestTimeout
	}
	return &YouTubeAdapter{
		apiKey:     config.APIKey,
		baseURL:    youtubeAPIBase,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (a *YouTubeAdapter) Platform() models.Platform {
	return models.PlatformYouTube
}

func (a *YouTubeAdapter) Flaky() bool {
	return false
}

// BuildProfileRequest is unsupported: this platform is served by the
// first-party API through the DirectFetcher path.
func (a *YouTubeAdapter) BuildProfileRequest(username string) (*interfaces.ActorRequest, error) {
	return nil, fmt.Errorf("youtube uses the first-party data API, not the actor service")
}

func (a *YouTubeAdapter) BuildVideoRequest(videoURL string) (*interfaces.ActorRequest, error) {
	return nil, fmt.Errorf("youtube uses the first-party data API, not the actor service")
}

func (a *YouTubeAdapter) ParseVideos(items []json.RawMessage) ([]*models.CanonicalVideo, error) {
	return nil, fmt.Errorf("youtube uses the first-party data API, not the actor service")
}

func (a *YouTubeAdapter) ParseProfile(items []json.RawMessage) (*models.CanonicalProfile, error) {
	return nil, fmt.Errorf("youtube uses the first-party data API, not the actor service")
}

// ExtractVideoID pulls the canonical 11-character id out of any known
// YouTube URL form (watch, short link, shorts, embed).
func ExtractVideoID(videoURL string) string {
	for _, pattern := range youtubeVideoIDPatterns {
		if match := pattern.FindStringSubmatch(videoURL); len(match) == 2 {
			return match[1]
		}
	}
	return ""
}

type youtubeVideoList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   map[string]struct {
				URL    string `json:"url"`
				Width  int    `json:"width"`
				Height int    `json:"height"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type youtubeChannelList struct {
	Items []struct {
		Snippet struct {
			Title      string `json:"title"`
			CustomURL  string `json:"customUrl"`
			Thumbnails map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// FetchVideo retrieves one video's metadata and statistics by URL
func (a *YouTubeAdapter) FetchVideo(ctx context.Context, videoURL string) (*models.CanonicalVideo, error) {
	videoID := ExtractVideoID(videoURL)
	if videoID == "" {
		return nil, fmt.Errorf("could not extract video id from url: %s", videoURL)
	}

	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", videoID)

	var list youtubeVideoList
	if err := a.get(ctx, "/videos", params, &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("video not found: %s", videoID)
	}

	item := list.Items[0]
	video := &models.CanonicalVideo{
		ExternalID: item.ID,
		URL:        videoURL,
		Caption:    item.Snippet.Title,
		Username:   models.NormalizeUsername(item.Snippet.ChannelTitle),
		Views:      parseCount(item.Statistics.ViewCount),
		Likes:      parseCount(item.Statistics.LikeCount),
		Comments:   parseCount(item.Statistics.CommentCount),
	}
	if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		video.UploadedAt = &t
	}

	// Prefer the largest thumbnail variant available
	var bestWidth int = -1
	for _, thumb := range item.Snippet.Thumbnails {
		if thumb.Width > bestWidth {
			bestWidth = thumb.Width
			video.ThumbnailURL = thumb.URL
		}
	}
	return video, nil
}

// FetchProfile retrieves channel metadata by handle
func (a *YouTubeAdapter) FetchProfile(ctx context.Context, username string) (*models.CanonicalProfile, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("forHandle", models.NormalizeUsername(username))

	var list youtubeChannelList
	if err := a.get(ctx, "/channels", params, &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("channel not found: %s", username)
	}

	item := list.Items[0]
	profile := &models.CanonicalProfile{
		Username:      models.NormalizeUsername(username),
		DisplayName:   item.Snippet.Title,
		FollowerCount: parseCount(item.Statistics.SubscriberCount),
	}
	if thumb, ok := item.Snippet.Thumbnails["high"]; ok {
		profile.ProfilePicture = thumb.URL
	} else if thumb, ok := item.Snippet.Thumbnails["default"]; ok {
		profile.ProfilePicture = thumb.URL
	}
	return profile, nil
}

func (a *YouTubeAdapter) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if a.apiKey == "" {
		return fmt.Errorf("youtube API key is not configured")
	}
	params.Set("key", a.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", a.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube API error: status %d on %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
