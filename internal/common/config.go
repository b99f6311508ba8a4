package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Sync        SyncConfig    `toml:"sync"`
	Scraper     ScraperConfig `toml:"scraper"`
	YouTube     YouTubeConfig `toml:"youtube"`
	Media       MediaConfig   `toml:"media"`
	Cleanup     CleanupConfig `toml:"cleanup"`
	Notify      NotifyConfig  `toml:"notify"`
	Mail        MailConfig    `toml:"mail"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
	// TriggerToken is the shared secret accepted on scheduled trigger requests
	TriggerToken string `toml:"trigger_token"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SyncConfig controls the scheduled account/video refresh pipeline
type SyncConfig struct {
	Enabled           bool          `toml:"enabled"`
	AccountSchedule   string        `toml:"account_schedule"`    // Cron schedule for account sync batches
	VideoSchedule     string        `toml:"video_schedule"`      // Cron schedule for video sync batches
	BatchSize         int           `toml:"batch_size"`          // Max entities processed per invocation
	AccountMaxRetries int           `toml:"account_max_retries"` // Retries before an account goes terminal
	RetryMaxAttempts  int           `toml:"retry_max_attempts"`  // Attempts for flaky-platform scrape calls
	RetryInitialDelay time.Duration `toml:"retry_initial_delay"` // Initial backoff delay
}

// ScraperConfig configures the external actor-execution service
type ScraperConfig struct {
	BaseURL        string        `toml:"base_url"`
	Token          string        `toml:"token"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	PollInterval   time.Duration `toml:"poll_interval"` // Async run status poll interval
	RunTimeout     time.Duration `toml:"run_timeout"`   // Max wall-clock wait for an async run
	RateLimit      time.Duration `toml:"rate_limit"`    // Minimum time between actor invocations
}

// YouTubeConfig contains first-party Data API configuration
type YouTubeConfig struct {
	APIKey         string        `toml:"api_key"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// MediaConfig configures durable thumbnail storage
type MediaConfig struct {
	Bucket       string        `toml:"bucket"`        // S3 bucket for re-hosted media
	Region       string        `toml:"region"`        // AWS region
	PublicPrefix string        `toml:"public_prefix"` // Public base URL of the bucket
	MinBytes     int           `toml:"min_bytes"`     // Reject downloads smaller than this (blocked/placeholder responses)
	Timeout      time.Duration `toml:"timeout"`       // Thumbnail download timeout
}

// CleanupConfig controls the zombie-record sweep
type CleanupConfig struct {
	Enabled     bool          `toml:"enabled"`
	Schedule    string        `toml:"schedule"`     // Cron schedule
	GracePeriod time.Duration `toml:"grace_period"` // Records younger than this are never deleted
	BatchCeil   int           `toml:"batch_ceil"`   // Max delete operations per committed batch
}

// NotifyConfig controls terminal-failure notifications
type NotifyConfig struct {
	AdminEmail string `toml:"admin_email"` // Default destination when no tenant preference exists
}

// MailConfig holds SMTP settings for outbound notification email
type MailConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
	UseTLS   bool   `toml:"use_tls"`
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in viewdeck.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Sync: SyncConfig{
			Enabled:           true,
			AccountSchedule:   "*/10 * * * *", // Every 10 minutes
			VideoSchedule:     "*/5 * * * *",  // Every 5 minutes
			BatchSize:         10,
			AccountMaxRetries: 3,
			RetryMaxAttempts:  3,
			RetryInitialDelay: 2 * time.Second,
		},
		Scraper: ScraperConfig{
			BaseURL:        "https://api.apify.com/v2",
			RequestTimeout: 90 * time.Second,
			PollInterval:   3 * time.Second,
			RunTimeout:     120 * time.Second,
			RateLimit:      1 * time.Second,
		},
		YouTube: YouTubeConfig{
			RequestTimeout: 30 * time.Second,
		},
		Media: MediaConfig{
			Region:   "us-east-1",
			MinBytes: 1024, // Hotlink-blocked responses are tiny placeholder payloads
			Timeout:  30 * time.Second,
		},
		Cleanup: CleanupConfig{
			Enabled:     true,
			Schedule:    "0 */6 * * *", // Every 6 hours
			GracePeriod: 24 * time.Hour,
			BatchCeil:   450, // Below the store's 500-operation batch ceiling
		},
		Notify: NotifyConfig{
			AdminEmail: "alerts@viewdeck.app",
		},
		Mail: MailConfig{
			Port:     587,
			FromName: "Viewdeck",
			UseTLS:   true,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VIEWDECK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("VIEWDECK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VIEWDECK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if token := os.Getenv("VIEWDECK_TRIGGER_TOKEN"); token != "" {
		config.Server.TriggerToken = token
	}

	if badgerPath := os.Getenv("VIEWDECK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("VIEWDECK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("VIEWDECK_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if enabled := os.Getenv("VIEWDECK_SYNC_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Sync.Enabled = e
		}
	}
	if schedule := os.Getenv("VIEWDECK_SYNC_ACCOUNT_SCHEDULE"); schedule != "" {
		config.Sync.AccountSchedule = schedule
	}
	if schedule := os.Getenv("VIEWDECK_SYNC_VIDEO_SCHEDULE"); schedule != "" {
		config.Sync.VideoSchedule = schedule
	}
	if batch := os.Getenv("VIEWDECK_SYNC_BATCH_SIZE"); batch != "" {
		if b, err := strconv.Atoi(batch); err == nil && b > 0 {
			config.Sync.BatchSize = b
		}
	}
	if retries := os.Getenv("VIEWDECK_SYNC_ACCOUNT_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r > 0 {
			config.Sync.AccountMaxRetries = r
		}
	}

	if baseURL := os.Getenv("VIEWDECK_SCRAPER_BASE_URL"); baseURL != "" {
		config.Scraper.BaseURL = baseURL
	}
	if token := os.Getenv("VIEWDECK_SCRAPER_TOKEN"); token != "" {
		config.Scraper.Token = token
	}
	if timeout := os.Getenv("VIEWDECK_SCRAPER_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Scraper.RequestTimeout = t
		}
	}

	if apiKey := os.Getenv("VIEWDECK_YOUTUBE_API_KEY"); apiKey != "" {
		config.YouTube.APIKey = apiKey
	}

	if bucket := os.Getenv("VIEWDECK_MEDIA_BUCKET"); bucket != "" {
		config.Media.Bucket = bucket
	}
	if region := os.Getenv("VIEWDECK_MEDIA_REGION"); region != "" {
		config.Media.Region = region
	}
	if prefix := os.Getenv("VIEWDECK_MEDIA_PUBLIC_PREFIX"); prefix != "" {
		config.Media.PublicPrefix = prefix
	}

	if enabled := os.Getenv("VIEWDECK_CLEANUP_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cleanup.Enabled = e
		}
	}
	if grace := os.Getenv("VIEWDECK_CLEANUP_GRACE_PERIOD"); grace != "" {
		if g, err := time.ParseDuration(grace); err == nil {
			config.Cleanup.GracePeriod = g
		}
	}

	if admin := os.Getenv("VIEWDECK_NOTIFY_ADMIN_EMAIL"); admin != "" {
		config.Notify.AdminEmail = admin
	}

	if host := os.Getenv("VIEWDECK_MAIL_HOST"); host != "" {
		config.Mail.Host = host
	}
	if port := os.Getenv("VIEWDECK_MAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Mail.Port = p
		}
	}
	if user := os.Getenv("VIEWDECK_MAIL_USERNAME"); user != "" {
		config.Mail.Username = user
	}
	if pass := os.Getenv("VIEWDECK_MAIL_PASSWORD"); pass != "" {
		config.Mail.Password = pass
	}
	if from := os.Getenv("VIEWDECK_MAIL_FROM"); from != "" {
		config.Mail.From = from
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
