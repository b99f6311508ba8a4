// Package sync drives tracked accounts and videos through the scrape,
// normalize, cache, quota and persistence pipeline.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
	"github.com/viewdeck/viewdeck/internal/platforms"
	"github.com/viewdeck/viewdeck/internal/quota"
	"github.com/viewdeck/viewdeck/internal/retry"
)

// EntityResult reports one entity's outcome within a batch
type EntityResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes one orchestrator invocation
type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []EntityResult `json:"results"`
}

// Service is the sync orchestrator. Batches are processed sequentially to
// respect upstream rate limits; a failure on one entity never aborts its
// siblings.
type Service struct {
	storage  interfaces.StorageManager
	registry *platforms.Registry
	actor    interfaces.ActorClient
	media    interfaces.MediaCache
	quota    *quota.Enforcer
	notifier interfaces.Notifier
	config   *common.SyncConfig
	logger   arbor.ILogger

	now func() time.Time
}

// NewService creates a sync orchestrator
func NewService(
	storage interfaces.StorageManager,
	registry *platforms.Registry,
	actor interfaces.ActorClient,
	media interfaces.MediaCache,
	enforcer *quota.Enforcer,
	notifier interfaces.Notifier,
	config *common.SyncConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		storage:  storage,
		registry: registry,
		actor:    actor,
		media:    media,
		quota:    enforcer,
		notifier: notifier,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) retryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	if s.config.RetryMaxAttempts > 0 {
		cfg.MaxAttempts = s.config.RetryMaxAttempts
	}
	if s.config.RetryInitialDelay > 0 {
		cfg.InitialDelay = s.config.RetryInitialDelay
	}
	return cfg
}

// runActor invokes the actor service, wrapped in the retry policy for
// platforms with high transient-failure rates. Stable platforms call through
// directly so genuine fatal errors surface without needless delay.
func (s *Service) runActor(ctx context.Context, adapter interfaces.PlatformAdapter, req *interfaces.ActorRequest) ([]json.RawMessage, error) {
	if !adapter.Flaky() {
		return s.actor.RunActor(ctx, req)
	}

	var items []json.RawMessage
	err := retry.Do(ctx, s.retryConfig(), func() error {
		var runErr error
		items, runErr = s.actor.RunActor(ctx, req)
		return runErr
	})
	return items, err
}

// SyncAccounts processes one bounded batch of pending accounts
func (s *Service) SyncAccounts(ctx context.Context) (*BatchResult, error) {
	batch, err := s.storage.Accounts().GetPendingBatch(ctx, s.config.BatchSize, s.config.AccountMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending accounts: %w", err)
	}

	result := &BatchResult{}
	for _, account := range batch {
		result.Processed++
		if err := s.syncAccount(ctx, account); err != nil {
			result.Failed++
			result.Results = append(result.Results, EntityResult{ID: account.ID, Status: string(account.SyncStatus), Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, EntityResult{ID: account.ID, Status: string(account.SyncStatus)})
	}

	if result.Processed > 0 {
		s.logger.Info().
			Int("processed", result.Processed).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg("Account sync batch finished")
	}
	return result, nil
}

// SyncAccount runs the pipeline for a single account by id
func (s *Service) SyncAccount(ctx context.Context, accountID string) error {
	account, err := s.storage.Accounts().Get(ctx, accountID)
	if err != nil {
		return err
	}
	return s.syncAccount(ctx, account)
}

func (s *Service) syncAccount(ctx context.Context, account *models.TrackedAccount) error {
	if !account.BeginSync() {
		return fmt.Errorf("account %s is not pending (status %s)", account.ID, account.SyncStatus)
	}
	if err := s.storage.Accounts().Save(ctx, account); err != nil {
		return fmt.Errorf("failed to mark account syncing: %w", err)
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("platform", string(account.Platform)).
		Str("username", account.Username).
		Msg("Account sync started")

	if err := s.processAccount(ctx, account); err != nil {
		s.failAccount(ctx, account, err)
		return err
	}

	account.CompleteSync(s.now())
	if err := s.storage.Accounts().Save(ctx, account); err != nil {
		return fmt.Errorf("failed to finalize account: %w", err)
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Int64("videos", account.Stats.TotalVideos).
		Msg("Account sync completed")
	return nil
}

func (s *Service) processAccount(ctx context.Context, account *models.TrackedAccount) error {
	adapter, err := s.registry.Get(account.Platform)
	if err != nil {
		return err
	}

	profile, videos, err := s.discover(ctx, adapter, account)
	if err != nil {
		return err
	}

	if profile != nil {
		s.applyProfile(ctx, account, profile)
	}

	admitted, charged, err := s.quota.AdmitExisting(ctx, account.OrgID, account.QuotaExempt, videos, func(c *models.CanonicalVideo) bool {
		existing, findErr := s.storage.Videos().FindByExternalID(ctx, account.Platform, c.ExternalID)
		return findErr == nil && existing == nil
	})
	if err != nil {
		return err
	}

	account.SyncProgress = models.SyncProgress{Total: len(admitted)}
	for i, canonical := range admitted {
		if err := s.persistVideo(ctx, account.OrgID, account.ID, account.Platform, canonical); err != nil {
			// Degraded entity, not a batch abort
			s.logger.Warn().
				Str("account_id", account.ID).
				Str("external_id", canonical.ExternalID).
				Err(err).
				Msg("Failed to persist discovered video")
			// The counter tracks stored records only; give the slot back
			if charged[canonical.ExternalID] {
				if relErr := s.quota.Release(ctx, account.OrgID, 1); relErr != nil {
					s.logger.Error().
						Str("org_id", account.OrgID).
						Err(relErr).
						Msg("Failed to release quota slot")
				}
			}
			continue
		}
		account.SyncProgress.Current = i + 1
		account.SyncProgress.Message = fmt.Sprintf("Processed %d of %d videos", i+1, len(admitted))
		if err := s.storage.Accounts().Save(ctx, account); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
	}

	return s.updateRollups(ctx, account)
}

// discover fetches the account's profile and recent videos, via the
// first-party API when the platform has one, otherwise the actor service.
func (s *Service) discover(ctx context.Context, adapter interfaces.PlatformAdapter, account *models.TrackedAccount) (*models.CanonicalProfile, []*models.CanonicalVideo, error) {
	if direct, ok := adapter.(interfaces.DirectFetcher); ok {
		profile, err := direct.FetchProfile(ctx, account.Username)
		if err != nil {
			return nil, nil, err
		}
		// Video discovery stays with the video pipeline for API platforms;
		// profile refresh alone keeps follower counts current.
		return profile, nil, nil
	}

	req, err := adapter.BuildProfileRequest(account.Username)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.runActor(ctx, adapter, req)
	if err != nil {
		return nil, nil, err
	}

	videos, err := adapter.ParseVideos(items)
	if err != nil {
		return nil, nil, err
	}
	// Profile fields ride along in video payloads; absence is not an error
	profile, _ := adapter.ParseProfile(items)
	return profile, videos, nil
}

// applyProfile updates account metadata from a freshly scraped profile.
// The raw avatar URL is re-hosted first; a failed re-host keeps the old
// picture rather than persisting an expiring CDN URL.
func (s *Service) applyProfile(ctx context.Context, account *models.TrackedAccount, profile *models.CanonicalProfile) {
	if profile.DisplayName != "" {
		account.DisplayName = profile.DisplayName
	}
	if profile.FollowerCount > 0 {
		account.FollowerCount = profile.FollowerCount
	}
	if profile.ProfilePicture != "" {
		filename := fmt.Sprintf("%s_%s_avatar.jpg", account.Platform, account.Username)
		if durable := s.media.Cache(ctx, profile.ProfilePicture, account.OrgID, filename); durable != "" {
			account.ProfilePicture = durable
		}
	}
}

// persistVideo upserts one discovered video as completed, re-hosting its
// thumbnail and appending a stats snapshot
func (s *Service) persistVideo(ctx context.Context, orgID, accountID string, platform models.Platform, canonical *models.CanonicalVideo) error {
	video := &models.VideoRecord{
		ID:         common.NewVideoID(),
		OrgID:      orgID,
		Platform:   platform,
		SourceURL:  canonical.URL,
		ExternalID: canonical.ExternalID,
		AccountID:  accountID,
		Title:      canonical.Caption,
		UploadedAt: canonical.UploadedAt,
		Views:      canonical.Views,
		Likes:      canonical.Likes,
		Comments:   canonical.Comments,
		Shares:     canonical.Shares,
		AddedAt:    s.now(),
	}
	video.CompleteProcessing(s.now())

	if canonical.ThumbnailURL != "" {
		filename := fmt.Sprintf("%s_%s.jpg", platform, canonical.ExternalID)
		video.Thumbnail = s.media.Cache(ctx, canonical.ThumbnailURL, orgID, filename)
	}

	if err := s.storage.Videos().Upsert(ctx, video); err != nil {
		return err
	}

	snapshot := &models.StatSnapshot{
		VideoID:  video.ID,
		Views:    video.Views,
		Likes:    video.Likes,
		Comments: video.Comments,
		Shares:   video.Shares,
		TakenAt:  s.now(),
	}
	if err := s.storage.Snapshots().Append(ctx, snapshot); err != nil {
		s.logger.Warn().Str("video_id", video.ID).Err(err).Msg("Failed to append stat snapshot")
	}
	return nil
}

// updateRollups recomputes the account's denormalized aggregate stats
func (s *Service) updateRollups(ctx context.Context, account *models.TrackedAccount) error {
	videos, err := s.storage.Videos().ListByAccount(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to list account videos: %w", err)
	}

	stats := models.AggregateStats{}
	for _, v := range videos {
		stats.TotalVideos++
		stats.TotalViews += v.Views
		stats.TotalLikes += v.Likes
		stats.TotalComments += v.Comments
		stats.TotalShares += v.Shares
	}
	account.Stats = stats
	return nil
}

// failAccount records a failure, persists the state transition and fires a
// notification when the account went terminal
func (s *Service) failAccount(ctx context.Context, account *models.TrackedAccount, cause error) {
	var terminal bool
	if errors.Is(cause, quota.ErrQuotaExhausted) {
		// Retrying cannot conjure free slots; fail the account outright
		account.FailPermanently(cause.Error())
		terminal = true
	} else {
		terminal = account.RecordFailure(cause.Error(), s.config.AccountMaxRetries)
	}
	if err := s.storage.Accounts().Save(ctx, account); err != nil {
		s.logger.Error().Str("account_id", account.ID).Err(err).Msg("Failed to persist account failure")
	}

	s.logger.Warn().
		Str("account_id", account.ID).
		Int("retry_count", account.SyncRetryCount).
		Bool("terminal", terminal).
		Err(cause).
		Msg("Account sync failed")

	if terminal {
		s.notifier.NotifyTerminalFailure(ctx, &interfaces.ErrorDetails{
			OrgID:         account.OrgID,
			Category:      models.CategoryAccountSync,
			EntityID:      account.ID,
			EntityName:    account.Username,
			Platform:      account.Platform,
			AttemptNumber: account.SyncRetryCount,
			Message:       cause.Error(),
		}, account.OwnerID)
	}
}
