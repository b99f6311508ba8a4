package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/models"
)

func TestRegistryCoversAllPlatforms(t *testing.T) {
	registry := NewRegistry(common.NewDefaultConfig(), arbor.NewLogger())

	for _, platform := range models.AllPlatforms {
		adapter, err := registry.Get(platform)
		require.NoError(t, err, string(platform))
		assert.Equal(t, platform, adapter.Platform())
	}

	_, err := registry.Get(models.Platform("myspace"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported platform")
}

func TestTikTokParseVideos(t *testing.T) {
	adapter := NewTikTokAdapter()
	items := []json.RawMessage{
		json.RawMessage(`{
			"id": "7301234567890",
			"webVideoUrl": "https://www.tiktok.com/@someuser/video/7301234567890",
			"text": "my new clip",
			"playCount": 15000,
			"diggCount": 1200,
			"commentCount": 85,
			"shareCount": 40,
			"createTimeISO": "2025-05-01T12:00:00Z",
			"covers": {"default": "https://p16-sign.tiktokcdn.com/cover.jpg"},
			"authorMeta": {"name": "SomeUser", "nickName": "Some User", "avatar": "https://p16.tiktokcdn.com/avatar.jpg", "fans": 50000}
		}`),
		json.RawMessage(`{"text": "item without any id is skipped"}`),
	}

	videos, err := adapter.ParseVideos(items)
	require.NoError(t, err)
	require.Len(t, videos, 1)

	v := videos[0]
	assert.Equal(t, "7301234567890", v.ExternalID)
	assert.Equal(t, "someuser", v.Username, "usernames are normalized")
	assert.Equal(t, int64(15000), v.Views)
	assert.Equal(t, int64(1200), v.Likes)
	assert.Equal(t, "https://p16-sign.tiktokcdn.com/cover.jpg", v.ThumbnailURL)
	require.NotNil(t, v.Profile)
	assert.Equal(t, int64(50000), v.Profile.FollowerCount)
	require.NotNil(t, v.UploadedAt)
}

func TestTikTokExternalIDFromURL(t *testing.T) {
	adapter := NewTikTokAdapter()
	items := []json.RawMessage{
		json.RawMessage(`{"webVideoUrl": "https://www.tiktok.com/@u/video/999888777", "playCount": 1}`),
	}
	videos, err := adapter.ParseVideos(items)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "999888777", videos[0].ExternalID)
}

func TestInstagramThumbnailFallbacks(t *testing.T) {
	adapter := NewInstagramAdapter()

	// Direct display field
	direct := []json.RawMessage{json.RawMessage(`{"id": "p1", "displayUrl": "https://ig.example.com/a.jpg"}`)}
	videos, err := adapter.ParseVideos(direct)
	require.NoError(t, err)
	assert.Equal(t, "https://ig.example.com/a.jpg", videos[0].ThumbnailURL)

	// Largest image in the resource list
	list := []json.RawMessage{json.RawMessage(`{
		"id": "p2",
		"images": [
			{"url": "https://ig.example.com/s.jpg", "width": 240},
			{"url": "https://ig.example.com/l.jpg", "width": 1080}
		]
	}`)}
	videos, err = adapter.ParseVideos(list)
	require.NoError(t, err)
	assert.Equal(t, "https://ig.example.com/l.jpg", videos[0].ThumbnailURL)

	// Regex scan of the caption as last resort
	caption := []json.RawMessage{json.RawMessage(`{"id": "p3", "caption": "pic at https://ig.example.com/c.png end"}`)}
	videos, err = adapter.ParseVideos(caption)
	require.NoError(t, err)
	assert.Equal(t, "https://ig.example.com/c.png", videos[0].ThumbnailURL)

	// Nothing anywhere yields empty, never an error
	none := []json.RawMessage{json.RawMessage(`{"id": "p4", "caption": "plain text"}`)}
	videos, err = adapter.ParseVideos(none)
	require.NoError(t, err)
	assert.Equal(t, "", videos[0].ThumbnailURL)
}

func TestInstagramViewCountFallbackChain(t *testing.T) {
	adapter := NewInstagramAdapter()
	items := []json.RawMessage{json.RawMessage(`{"id": "p1", "video_view_count": 4321}`)}
	videos, err := adapter.ParseVideos(items)
	require.NoError(t, err)
	assert.Equal(t, int64(4321), videos[0].Views)
}

func TestTwitterParseProfile(t *testing.T) {
	adapter := NewTwitterAdapter()
	items := []json.RawMessage{json.RawMessage(`{
		"id": "1790000000",
		"url": "https://x.com/someone/status/1790000000",
		"text": "hello",
		"author": {"userName": "Someone", "name": "Some One", "followers": 1234, "profilePicture": "https://pbs.twimg.com/p.jpg"}
	}`)}

	profile, err := adapter.ParseProfile(items)
	require.NoError(t, err)
	assert.Equal(t, "someone", profile.Username)
	assert.Equal(t, int64(1234), profile.FollowerCount)

	_, err = adapter.ParseProfile([]json.RawMessage{json.RawMessage(`{"text": "no author"}`)})
	require.Error(t, err)
}

func TestFlakyClassification(t *testing.T) {
	assert.True(t, NewTikTokAdapter().Flaky())
	assert.True(t, NewInstagramAdapter().Flaky())
	assert.False(t, NewTwitterAdapter().Flaky())
	assert.False(t, NewYouTubeAdapter(&common.YouTubeConfig{}, arbor.NewLogger()).Flaky())
}

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":      "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                     "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abcDEF12345":       "abcDEF12345",
		"https://www.youtube.com/embed/abcDEF12345?rel=0":  "abcDEF12345",
		"https://www.youtube.com/playlist?list=PLxyz":      "",
		"https://example.com/not-youtube":                  "",
	}
	for input, want := range cases {
		assert.Equal(t, want, ExtractVideoID(input), input)
	}
}

func TestYouTubeFetchVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/videos", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"items":[{
			"id": "dQw4w9WgXcQ",
			"snippet": {
				"title": "A Video",
				"channelTitle": "SomeChannel",
				"publishedAt": "2025-04-01T00:00:00Z",
				"thumbnails": {
					"default": {"url": "https://i.ytimg.com/default.jpg", "width": 120},
					"maxres": {"url": "https://i.ytimg.com/maxres.jpg", "width": 1280}
				}
			},
			"statistics": {"viewCount": "98765", "likeCount": "4321", "commentCount": "100"}
		}]}`)
	}))
	defer server.Close()

	adapter := NewYouTubeAdapter(&common.YouTubeConfig{APIKey: "test-key"}, arbor.NewLogger())
	adapter.baseURL = server.URL

	video, err := adapter.FetchVideo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", video.ExternalID)
	assert.Equal(t, int64(98765), video.Views)
	assert.Equal(t, "https://i.ytimg.com/maxres.jpg", video.ThumbnailURL, "largest thumbnail variant wins")
	require.NotNil(t, video.UploadedAt)
}

func TestYouTubeFetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels", r.URL.Path)
		require.Equal(t, "somechannel", r.URL.Query().Get("forHandle"))
		fmt.Fprint(w, `{"items":[{
			"snippet": {"title": "Some Channel", "thumbnails": {"high": {"url": "https://yt3.ggpht.com/pic.jpg"}}},
			"statistics": {"subscriberCount": "250000"}
		}]}`)
	}))
	defer server.Close()

	adapter := NewYouTubeAdapter(&common.YouTubeConfig{APIKey: "test-key"}, arbor.NewLogger())
	adapter.baseURL = server.URL

	profile, err := adapter.FetchProfile(context.Background(), "@SomeChannel")
	require.NoError(t, err)
	assert.Equal(t, "Some Channel", profile.DisplayName)
	assert.Equal(t, int64(250000), profile.FollowerCount)
	assert.Equal(t, "https://yt3.ggpht.com/pic.jpg", profile.ProfilePicture)
}

func TestYouTubeMissingAPIKey(t *testing.T) {
	adapter := NewYouTubeAdapter(&common.YouTubeConfig{}, arbor.NewLogger())
	_, err := adapter.FetchVideo(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
