// Package retry provides bounded exponential backoff for transient upstream failures.
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// retryableSignatures are the error fragments the scraping and proxy layer is
// known to emit for transient conditions. Anything else fails fast.
var retryableSignatures = []string{
	"403",
	"forbidden",
	"proxy",
	"tls",
	"ssl",
	"connection reset",
	"connection refused",
	"timeout",
	"deadline exceeded",
	"max retries exceeded",
	"temporarily unavailable",
}

// Config configures retry behavior
type Config struct {
	// MaxAttempts is the total number of attempts including the first
	MaxAttempts int
	// InitialDelay is the delay before the first retry; subsequent delays
	// double each attempt
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
	// IsRetryable decides whether an error is worth another attempt.
	// Defaults to signature classification against the known transient set.
	IsRetryable func(error) bool
	// Sleep is the wait function, replaceable in tests. Defaults to a
	// context-aware time.After wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns the retry configuration used for flaky platforms
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		IsRetryable:  IsRetryable,
	}
}

// IsRetryable classifies an error by inspecting it for known transient
// signatures. Classification is case-insensitive substring matching because
// the upstream service flattens causes into message text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range retryableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do executes fn with bounded exponential backoff. Non-retryable errors abort
// on first occurrence; retryable errors are re-attempted up to
// config.MaxAttempts with delays of InitialDelay * 2^(attempt-1). The last
// error is returned once attempts are exhausted.
func Do(ctx context.Context, config Config, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 2 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.IsRetryable == nil {
		config.IsRetryable = IsRetryable
	}
	if config.Sleep == nil {
		config.Sleep = sleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !config.IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < config.MaxAttempts {
			delay := config.InitialDelay << (attempt - 1)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
			if err := config.Sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", config.MaxAttempts, lastErr)
}
