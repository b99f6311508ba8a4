package sync

import (
	"context"
	"fmt"

	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// SyncVideos processes one bounded batch of pending video records
func (s *Service) SyncVideos(ctx context.Context) (*BatchResult, error) {
	batch, err := s.storage.Videos().GetPendingBatch(ctx, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending videos: %w", err)
	}

	result := &BatchResult{}
	for _, video := range batch {
		result.Processed++
		if err := s.syncVideo(ctx, video); err != nil {
			result.Failed++
			result.Results = append(result.Results, EntityResult{ID: video.ID, Status: string(video.SyncStatus), Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, EntityResult{ID: video.ID, Status: string(video.SyncStatus)})
	}

	if result.Processed > 0 {
		s.logger.Info().
			Int("processed", result.Processed).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg("Video sync batch finished")
	}
	return result, nil
}

func (s *Service) syncVideo(ctx context.Context, video *models.VideoRecord) error {
	if !video.BeginProcessing() {
		return fmt.Errorf("video %s is not pending (status %s)", video.ID, video.SyncStatus)
	}
	if err := s.storage.Videos().Upsert(ctx, video); err != nil {
		return fmt.Errorf("failed to mark video processing: %w", err)
	}

	ownerProfile, err := s.processVideo(ctx, video)
	if err != nil {
		s.failVideo(ctx, video, err)
		return err
	}

	video.CompleteProcessing(s.now())
	if err := s.storage.Videos().Upsert(ctx, video); err != nil {
		return fmt.Errorf("failed to finalize video: %w", err)
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

	s.enrichOwnerAccount(ctx, video, ownerProfile)
	return nil
}

// processVideo refreshes the record in place and returns the owner profile
// fields when the payload carried them
func (s *Service) processVideo(ctx context.Context, video *models.VideoRecord) (*models.CanonicalProfile, error) {
	adapter, err := s.registry.Get(video.Platform)
	if err != nil {
		return nil, err
	}

	canonical, err := s.fetchVideo(ctx, adapter, video)
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return nil, fmt.Errorf("no metadata returned for video %s", video.SourceURL)
	}

	if canonical.ExternalID != "" {
		video.ExternalID = canonical.ExternalID
	}
	if canonical.Caption != "" {
		video.Title = canonical.Caption
	}
	if canonical.UploadedAt != nil {
		video.UploadedAt = canonical.UploadedAt
	}
	video.Views = canonical.Views
	video.Likes = canonical.Likes
	video.Comments = canonical.Comments
	video.Shares = canonical.Shares

	if canonical.ThumbnailURL != "" {
		filename := fmt.Sprintf("%s_%s.jpg", video.Platform, video.ExternalID)
		if durable := s.media.Cache(ctx, canonical.ThumbnailURL, video.OrgID, filename); durable != "" {
			video.Thumbnail = durable
		}
	}

	return canonical.Profile, nil
}

func (s *Service) fetchVideo(ctx context.Context, adapter interfaces.PlatformAdapter, video *models.VideoRecord) (*models.CanonicalVideo, error) {
	if direct, ok := adapter.(interfaces.DirectFetcher); ok {
		return direct.FetchVideo(ctx, video.SourceURL)
	}

	req, err := adapter.BuildVideoRequest(video.SourceURL)
	if err != nil {
		return nil, err
	}

	items, err := s.runActor(ctx, adapter, req)
	if err != nil {
		return nil, err
	}

	videos, err := adapter.ParseVideos(items)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("actor returned no parseable video for %s", video.SourceURL)
	}
	return videos[0], nil
}

// enrichOwnerAccount opportunistically updates the owning account's profile
// metadata when the video payload carried a richer data point
func (s *Service) enrichOwnerAccount(ctx context.Context, video *models.VideoRecord, profile *models.CanonicalProfile) {
	if video.AccountID == "" || profile == nil {
		return
	}

	account, err := s.storage.Accounts().Get(ctx, video.AccountID)
	if err != nil {
		return
	}

	s.applyProfile(ctx, account, profile)
	if err := s.storage.Accounts().Save(ctx, account); err != nil {
		s.logger.Warn().Str("account_id", account.ID).Err(err).Msg("Failed to enrich account profile")
	}
}

func (s *Service) failVideo(ctx context.Context, video *models.VideoRecord, cause error) {
	terminal := video.RecordFailure(cause.Error())
	if err := s.storage.Videos().Upsert(ctx, video); err != nil {
		s.logger.Error().Str("video_id", video.ID).Err(err).Msg("Failed to persist video failure")
	}

	s.logger.Warn().
		Str("video_id", video.ID).
		Int("retry_count", video.SyncRetryCount).
		Bool("terminal", terminal).
		Err(cause).
		Msg("Video sync failed")

	if terminal {
		s.notifier.NotifyTerminalFailure(ctx, &interfaces.ErrorDetails{
			OrgID:         video.OrgID,
			Category:      models.CategoryVideoProcessing,
			EntityID:      video.ID,
			EntityName:    video.Title,
			Platform:      video.Platform,
			AttemptNumber: video.SyncRetryCount,
			Message:       cause.Error(),
		}, "")
	}
}
