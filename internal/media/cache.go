// Package media re-hosts ephemeral platform CDN assets in durable object
// storage so persisted records never carry an expiring URL.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
)

// DefaultMinBytes rejects downloads smaller than this. Hotlink-blocked and
// placeholder responses are tiny; real thumbnails are not.
const DefaultMinBytes = 1024

// refererByHost maps origin hosts to the Referer header they require.
// Some CDNs serve an error page without it.
var refererByHost = map[string]string{
	"tiktokcdn.com":    "https://www.tiktok.com/",
	"cdninstagram.com": "https://www.instagram.com/",
	"fbcdn.net":        "https://www.instagram.com/",
	"twimg.com":        "https://twitter.com/",
}

// refererFor returns the Referer header required by an origin host, or ""
func refererFor(host string) string {
	for suffix, referer := range refererByHost {
		if strings.HasSuffix(host, suffix) || strings.Contains(host, suffix+":") {
			return referer
		}
	}
	return ""
}

// Uploader stores validated bytes under a key and is replaceable in tests
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
}

type s3Uploader struct {
	uploader *s3manager.Uploader
	bucket   string
}

func (u *s3Uploader) Upload(ctx context.Context, key, contentType string, body []byte) error {
	_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

// Cache downloads remote thumbnails and persists them to durable storage.
// On any failure it yields an empty string, never the remote URL: a missing
// thumbnail heals on the next sync pass, a cached expiring URL rots silently.
type Cache struct {
	httpClient   *http.Client
	uploader     Uploader
	publicPrefix string
	minBytes     int
	logger       arbor.ILogger
}

// NewCache creates a media cache backed by S3
func NewCache(config *common.MediaConfig, logger arbor.ILogger) (interfaces.MediaCache, error) {
	if config.Bucket == "" || config.PublicPrefix == "" {
		return nil, fmt.Errorf("media bucket and public prefix are required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	timeout := 30 * time.Second
	if config.Timeout > 0 {
		timeout = config.Timeout
	}
	minBytes := DefaultMinBytes
	if config.MinBytes > 0 {
		minBytes = config.MinBytes
	}

	return &Cache{
		httpClient:   &http.Client{Timeout: timeout},
		uploader:     &s3Uploader{uploader: s3manager.NewUploader(sess), bucket: config.Bucket},
		publicPrefix: strings.TrimSuffix(config.PublicPrefix, "/"),
		minBytes:     minBytes,
		logger:       logger,
	}, nil
}

// NewDisabledCache returns a cache that never re-hosts. Records keep an empty
// thumbnail until durable storage is configured; they heal on a later sync.
func NewDisabledCache(logger arbor.ILogger) interfaces.MediaCache {
	return &disabledCache{logger: logger}
}

type disabledCache struct {
	logger arbor.ILogger
}

func (d *disabledCache) IsDurable(url string) bool { return false }

func (d *disabledCache) Cache(ctx context.Context, remoteURL, orgID, filename string) string {
	if remoteURL != "" {
		d.logger.Debug().Str("url", remoteURL).Msg("Media cache disabled, dropping remote thumbnail")
	}
	return ""
}

// NewCacheWithUploader wires a custom uploader, used by tests
func NewCacheWithUploader(uploader Uploader, publicPrefix string, minBytes int, logger arbor.ILogger) *Cache {
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	return &Cache{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		uploader:     uploader,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
		minBytes:     minBytes,
		logger:       logger,
	}
}

// IsDurable reports whether a URL already points at our durable storage
func (c *Cache) IsDurable(url string) bool {
	return url != "" && strings.HasPrefix(url, c.publicPrefix)
}

// Cache downloads remoteURL, validates it and uploads it under a
// tenant-scoped key, returning the public durable URL. Returns "" on any
// failure. Re-caching an already durable URL is a no-op.
func (c *Cache) Cache(ctx context.Context, remoteURL, orgID, filename string) string {
	if remoteURL == "" {
		return ""
	}
	if c.IsDurable(remoteURL) {
		return remoteURL
	}

	body, contentType, err := c.download(ctx, remoteURL)
	if err != nil {
		c.logger.Warn().Str("url", remoteURL).Err(err).Msg("Thumbnail download failed")
		return ""
	}
	if len(body) < c.minBytes {
		c.logger.Warn().
			Str("url", remoteURL).
			Int("bytes", len(body)).
			Int("min_bytes", c.minBytes).
			Msg("Thumbnail below size threshold, treating as blocked response")
		return ""
	}

	key := fmt.Sprintf("media/%s/%s", orgID, filename)
	if err := c.uploader.Upload(ctx, key, contentType, body); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("Thumbnail upload failed")
		return ""
	}

	return fmt.Sprintf("%s/%s", c.publicPrefix, key)
}

func (c *Cache) download(ctx context.Context, remoteURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; viewdeck/1.0)")
	if referer := refererFor(req.URL.Host); referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return body, contentType, nil
}
