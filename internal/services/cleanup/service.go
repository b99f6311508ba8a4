// Package cleanup sweeps zombie records left behind by failed syncs.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// DefaultGracePeriod protects records still mid-sync from deletion
const DefaultGracePeriod = 24 * time.Hour

// DefaultBatchCeil bounds delete operations per sweep, kept below the
// store's per-transaction operation ceiling
const DefaultBatchCeil = 450

// Result summarizes one sweep
type Result struct {
	VideosDeleted    int `json:"videos_deleted"`
	SnapshotsDeleted int `json:"snapshots_deleted"`
	AccountsDeleted  int `json:"accounts_deleted"`
}

// Service deletes records that are older than the grace period and never
// acquired any real data. A younger record is never touched regardless of
// how empty it looks.
type Service struct {
	storage     interfaces.StorageManager
	gracePeriod time.Duration
	batchCeil   int
	logger      arbor.ILogger

	now func() time.Time
}

// NewService creates a cleanup service
func NewService(storage interfaces.StorageManager, config *common.CleanupConfig, logger arbor.ILogger) *Service {
	grace := DefaultGracePeriod
	if config.GracePeriod > 0 {
		grace = config.GracePeriod
	}
	ceil := DefaultBatchCeil
	if config.BatchCeil > 0 {
		ceil = config.BatchCeil
	}
	return &Service{
		storage:     storage,
		gracePeriod: grace,
		batchCeil:   ceil,
		logger:      logger,
		now:         time.Now,
	}
}

// SweepAll runs a sweep across every organization with tracked accounts
func (s *Service) SweepAll(ctx context.Context) (*Result, error) {
	orgIDs, err := s.storage.Accounts().ListOrgIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	total := &Result{}
	for _, orgID := range orgIDs {
		result, err := s.SweepOrg(ctx, orgID)
		if err != nil {
			s.logger.Error().Str("org_id", orgID).Err(err).Msg("Cleanup sweep failed for organization")
			continue
		}
		total.VideosDeleted += result.VideosDeleted
		total.SnapshotsDeleted += result.SnapshotsDeleted
		total.AccountsDeleted += result.AccountsDeleted
	}
	return total, nil
}

// SweepOrg removes the organization's zombie videos and accounts. Deletes
// stop at the batch ceiling; remaining zombies are caught by the next sweep.
func (s *Service) SweepOrg(ctx context.Context, orgID string) (*Result, error) {
	cutoff := s.now().Add(-s.gracePeriod)
	result := &Result{}
	ops := 0

	videos, err := s.storage.Videos().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	for _, video := range videos {
		if ops >= s.batchCeil {
			s.logger.Info().Int("ceiling", s.batchCeil).Msg("Cleanup batch ceiling reached, deferring remainder")
			return result, nil
		}
		if !s.isZombieVideo(video, cutoff) {
			continue
		}

		// Snapshots cascade first so a partial failure leaves no orphans
		deleted, err := s.storage.Snapshots().DeleteByVideo(ctx, video.ID)
		if err != nil {
			s.logger.Warn().Str("video_id", video.ID).Err(err).Msg("Failed to cascade snapshot delete")
			continue
		}
		result.SnapshotsDeleted += deleted
		ops += deleted

		if err := s.storage.Videos().Delete(ctx, video.ID); err != nil {
			s.logger.Warn().Str("video_id", video.ID).Err(err).Msg("Failed to delete zombie video")
			continue
		}
		result.VideosDeleted++
		ops++

		s.logger.Debug().
			Str("video_id", video.ID).
			Str("source_url", video.SourceURL).
			Msg("Deleted zombie video")
	}

	accounts, err := s.storage.Accounts().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, account := range accounts {
		if ops >= s.batchCeil {
			s.logger.Info().Int("ceiling", s.batchCeil).Msg("Cleanup batch ceiling reached, deferring remainder")
			return result, nil
		}
		if !s.isZombieAccount(ctx, account, cutoff) {
			continue
		}

		if err := s.storage.Accounts().Delete(ctx, account.ID); err != nil {
			s.logger.Warn().Str("account_id", account.ID).Err(err).Msg("Failed to delete zombie account")
			continue
		}
		result.AccountsDeleted++
		ops++

		s.logger.Debug().
			Str("account_id", account.ID).
			Str("username", account.Username).
			Msg("Deleted zombie account")
	}

	if result.VideosDeleted > 0 || result.AccountsDeleted > 0 {
		s.logger.Info().
			Str("org_id", orgID).
			Int("videos", result.VideosDeleted).
			Int("snapshots", result.SnapshotsDeleted).
			Int("accounts", result.AccountsDeleted).
			Msg("Cleanup sweep finished")
	}
	return result, nil
}

// isZombieVideo reports whether a video is past the grace period and never
// acquired real data
func (s *Service) isZombieVideo(video *models.VideoRecord, cutoff time.Time) bool {
	if video.AddedAt.After(cutoff) {
		return false
	}
	return !video.HasRealData()
}

// isZombieAccount reports whether an account is past the grace period, has
// no profile substance and owns no videos
func (s *Service) isZombieAccount(ctx context.Context, account *models.TrackedAccount, cutoff time.Time) bool {
	if account.CreatedAt.After(cutoff) {
		return false
	}
	if account.DisplayName != "" || account.ProfilePicture != "" || account.FollowerCount > 0 {
		return false
	}
	if account.Stats.TotalVideos > 0 || account.Stats.TotalViews > 0 {
		return false
	}

	videos, err := s.storage.Videos().ListByAccount(ctx, account.ID)
	if err != nil || len(videos) > 0 {
		return false
	}
	return true
}
