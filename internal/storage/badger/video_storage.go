package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// VideoStorage implements the VideoStorage interface for Badger
type VideoStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVideoStorage creates a new VideoStorage instance
func NewVideoStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VideoStorage {
	return &VideoStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert saves a video keyed by platform+external id. A second sync of the
// same external id overwrites the first record's fields in place. Standalone
// submissions may not have resolved an external id yet; those are keyed by
// record id, and dedupe takes over once the id resolves.
func (s *VideoStorage) Upsert(ctx context.Context, video *models.VideoRecord) error {
	if video.Platform == "" {
		return fmt.Errorf("video platform is required")
	}

	if video.ExternalID != "" {
		existing, err := s.FindByExternalID(ctx, video.Platform, video.ExternalID)
		if err != nil {
			return err
		}
		if existing != nil {
			video.ID = existing.ID
			video.AddedAt = existing.AddedAt
		}
	}
	if video.ID == "" {
		return fmt.Errorf("video ID is required")
	}

	if err := s.db.Store().Upsert(video.ID, video); err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

func (s *VideoStorage) Get(ctx context.Context, id string) (*models.VideoRecord, error) {
	var video models.VideoRecord
	if err := s.db.Store().Get(id, &video); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("video not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (s *VideoStorage) FindByExternalID(ctx context.Context, platform models.Platform, externalID string) (*models.VideoRecord, error) {
	var videos []models.VideoRecord
	query := badgerhold.Where("Platform").Eq(platform).And("ExternalID").Eq(externalID)
	if err := s.db.Store().Find(&videos, query); err != nil {
		return nil, fmt.Errorf("failed to find video: %w", err)
	}
	if len(videos) == 0 {
		return nil, nil
	}
	return &videos[0], nil
}

func (s *VideoStorage) GetPendingBatch(ctx context.Context, limit int) ([]*models.VideoRecord, error) {
	var videos []models.VideoRecord
	query := badgerhold.Where("SyncStatus").Eq(models.VideoSyncPending).
		And("SyncRetryCount").Lt(models.VideoMaxRetries).
		SortBy("AddedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&videos, query); err != nil {
		return nil, fmt.Errorf("failed to query pending videos: %w", err)
	}

	result := make([]*models.VideoRecord, len(videos))
	for i := range videos {
		result[i] = &videos[i]
	}
	return result, nil
}

func (s *VideoStorage) ListByAccount(ctx context.Context, accountID string) ([]*models.VideoRecord, error) {
	return s.list(badgerhold.Where("AccountID").Eq(accountID))
}

func (s *VideoStorage) ListByOrg(ctx context.Context, orgID string) ([]*models.VideoRecord, error) {
	return s.list(badgerhold.Where("OrgID").Eq(orgID))
}

func (s *VideoStorage) list(query *badgerhold.Query) ([]*models.VideoRecord, error) {
	var videos []models.VideoRecord
	if err := s.db.Store().Find(&videos, query.SortBy("AddedAt")); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	result := make([]*models.VideoRecord, len(videos))
	for i := range videos {
		result[i] = &videos[i]
	}
	return result, nil
}

func (s *VideoStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.VideoRecord{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}
