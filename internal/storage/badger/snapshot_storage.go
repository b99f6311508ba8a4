package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// SnapshotStorage implements the SnapshotStorage interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SnapshotStorage) Append(ctx context.Context, snapshot *models.StatSnapshot) error {
	if snapshot.VideoID == "" {
		return fmt.Errorf("snapshot video ID is required")
	}
	if snapshot.ID == "" {
		snapshot.ID = common.NewSnapshotID()
	}
	if err := s.db.Store().Insert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) ListByVideo(ctx context.Context, videoID string) ([]*models.StatSnapshot, error) {
	var snapshots []models.StatSnapshot
	query := badgerhold.Where("VideoID").Eq(videoID).SortBy("TakenAt")
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	result := make([]*models.StatSnapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}

// DeleteByVideo removes all snapshots for a video and returns the count removed
func (s *SnapshotStorage) DeleteByVideo(ctx context.Context, videoID string) (int, error) {
	snapshots, err := s.ListByVideo(ctx, videoID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, snap := range snapshots {
		if err := s.db.Store().Delete(snap.ID, &models.StatSnapshot{}); err != nil && err != badgerhold.ErrNotFound {
			return deleted, fmt.Errorf("failed to delete snapshot %s: %w", snap.ID, err)
		}
		deleted++
	}
	return deleted, nil
}
