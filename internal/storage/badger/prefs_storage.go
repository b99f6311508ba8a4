package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// PrefsStorage implements the PrefsStorage interface for Badger
type PrefsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPrefsStorage creates a new PrefsStorage instance
func NewPrefsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PrefsStorage {
	return &PrefsStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns stored preferences, or nil when the tenant has none
func (s *PrefsStorage) Get(ctx context.Context, userID string) (*models.NotificationPrefs, error) {
	var prefs models.NotificationPrefs
	if err := s.db.Store().Get(userID, &prefs); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification prefs: %w", err)
	}
	return &prefs, nil
}

func (s *PrefsStorage) Save(ctx context.Context, prefs *models.NotificationPrefs) error {
	if prefs.UserID == "" {
		return fmt.Errorf("prefs user ID is required")
	}
	if err := s.db.Store().Upsert(prefs.UserID, prefs); err != nil {
		return fmt.Errorf("failed to save notification prefs: %w", err)
	}
	return nil
}
