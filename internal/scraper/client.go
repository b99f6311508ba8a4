// Package scraper provides a client for the external actor-execution service.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL of the actor-execution service
	DefaultBaseURL = "https://api.apify.com/v2"

	// DefaultTimeout is the default HTTP timeout for synchronous runs
	DefaultTimeout = 90 * time.Second

	// DefaultPollInterval is how often async run status is checked
	DefaultPollInterval = 3 * time.Second

	// DefaultRunTimeout bounds the total wait for an async run
	DefaultRunTimeout = 120 * time.Second
)

// ErrNoData indicates an actor run finished without producing any items
var ErrNoData = errors.New("actor run returned no items")

// ScrapeError represents an error response from the actor service
type ScrapeError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scraper API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client invokes scraping actors. Synchronous runs are tried first; on
// failure the async submit-then-poll protocol is used as a fallback.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	logger       arbor.ILogger
	limiter      *rate.Limiter
	pollInterval time.Duration
	runTimeout   time.Duration
}

// NewClient creates an actor-service client from configuration
func NewClient(config *common.ScraperConfig, logger arbor.ILogger) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		token:        config.Token,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		runTimeout:   DefaultRunTimeout,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1),
	}
	if config.BaseURL != "" {
		c.baseURL = config.BaseURL
	}
	if config.RequestTimeout > 0 {
		c.httpClient.Timeout = config.RequestTimeout
	}
	if config.PollInterval > 0 {
		c.pollInterval = config.PollInterval
	}
	if config.RunTimeout > 0 {
		c.runTimeout = config.RunTimeout
	}
	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Every(config.RateLimit), 1)
	}
	return c
}

// RunActor executes an actor and returns its result items. The synchronous
// run-and-get-items endpoint is attempted first; any failure there falls
// back to submitting an async run and polling it to completion.
func (c *Client) RunActor(ctx context.Context, req *interfaces.ActorRequest) ([]json.RawMessage, error) {
	if req.ActorID == "" {
		return nil, fmt.Errorf("actor ID is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	items, syncErr := c.runSync(ctx, req)
	if syncErr == nil {
		return items, nil
	}

	c.logger.Warn().
		Str("actor_id", req.ActorID).
		Err(syncErr).
		Msg("Synchronous actor run failed, falling back to async protocol")

	items, asyncErr := c.runAsync(ctx, req)
	if asyncErr != nil {
		return nil, fmt.Errorf("actor run failed (sync: %v): %w", syncErr, asyncErr)
	}
	return items, nil
}

func (c *Client) runSync(ctx context.Context, req *interfaces.ActorRequest) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("/acts/%s/run-sync-get-dataset-items", req.ActorID)

	var items []json.RawMessage
	if err := c.post(ctx, endpoint, req.Input, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoData
	}
	return items, nil
}

// runStatus is the subset of the run resource the client inspects
type runStatus struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

func isTerminalRunStatus(status string) bool {
	switch status {
	case "SUCCEEDED", "FAILED", "ABORTED", "TIMED-OUT":
		return true
	}
	return false
}

func (c *Client) runAsync(ctx context.Context, req *interfaces.ActorRequest) ([]json.RawMessage, error) {
	var run runStatus
	if err := c.post(ctx, fmt.Sprintf("/acts/%s/runs", req.ActorID), req.Input, &run); err != nil {
		return nil, fmt.Errorf("failed to submit run: %w", err)
	}

	c.logger.Debug().
		Str("actor_id", req.ActorID).
		Str("run_id", run.Data.ID).
		Msg("Async actor run submitted")

	deadline := time.Now().Add(c.runTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !isTerminalRunStatus(run.Data.Status) {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("actor run %s timed out after %s", run.Data.ID, c.runTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if err := c.get(ctx, fmt.Sprintf("/actor-runs/%s", run.Data.ID), &run); err != nil {
			return nil, fmt.Errorf("failed to poll run status: %w", err)
		}
	}

	if run.Data.Status != "SUCCEEDED" {
		return nil, fmt.Errorf("actor run %s finished with status %s", run.Data.ID, run.Data.Status)
	}

	var items []json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/datasets/%s/items", run.Data.DefaultDatasetID), &items); err != nil {
		return nil, fmt.Errorf("failed to fetch run items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoData
	}
	return items, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal actor input: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), result)
}

func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, result)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, result interface{}) error {
	reqURL := fmt.Sprintf("%s%s?token=%s", c.baseURL, endpoint, c.token)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &ScrapeError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   endpoint,
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
