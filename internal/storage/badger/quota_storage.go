package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// DefaultVideoLimit is the plan limit applied to tenants with no stored quota
const DefaultVideoLimit = 100

// adjustRetries bounds conflict retries on the quota counter transaction
const adjustRetries = 5

// QuotaStorage implements the QuotaStorage interface for Badger
type QuotaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// mu serializes counter transactions. Badger's optimistic conflict
	// detection alone loses updates under concurrent project dispatches.
	mu sync.Mutex
}

// NewQuotaStorage creates a new QuotaStorage instance
func NewQuotaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuotaStorage {
	return &QuotaStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the org's quota, or a default-limit quota when none is stored
func (s *QuotaStorage) Get(ctx context.Context, orgID string) (*models.UsageQuota, error) {
	var quota models.UsageQuota
	if err := s.db.Store().Get(orgID, &quota); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.UsageQuota{
				OrgID: orgID,
				Limit: DefaultVideoLimit,
			}, nil
		}
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}
	return &quota, nil
}

func (s *QuotaStorage) Save(ctx context.Context, quota *models.UsageQuota) error {
	if quota.OrgID == "" {
		return fmt.Errorf("quota org ID is required")
	}
	quota.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(quota.OrgID, quota); err != nil {
		return fmt.Errorf("failed to save quota: %w", err)
	}
	return nil
}

// IncrementUsage adds n consumed slots to the org's counter
func (s *QuotaStorage) IncrementUsage(ctx context.Context, orgID string, n int) error {
	if n <= 0 {
		return nil
	}
	return s.adjustUsage(orgID, n)
}

// ReleaseUsage returns n consumed slots, flooring the counter at zero
func (s *QuotaStorage) ReleaseUsage(ctx context.Context, orgID string, n int) error {
	if n <= 0 {
		return nil
	}
	return s.adjustUsage(orgID, -n)
}

// adjustUsage applies a counter delta inside a single serialized Badger
// transaction so no concurrent update is ever lost
func (s *QuotaStorage) adjustUsage(orgID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < adjustRetries; attempt++ {
		lastErr = s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
			var quota models.UsageQuota
			err := s.db.Store().TxGet(txn, orgID, &quota)
			if err == badgerhold.ErrNotFound {
				quota = models.UsageQuota{OrgID: orgID, Limit: DefaultVideoLimit}
			} else if err != nil {
				return err
			}
			quota.TrackedVideos += delta
			if quota.TrackedVideos < 0 {
				quota.TrackedVideos = 0
			}
			quota.UpdatedAt = time.Now()
			return s.db.Store().TxUpsert(txn, orgID, &quota)
		})
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, badgerdb.ErrConflict) {
			break
		}
	}
	return fmt.Errorf("failed to adjust quota usage: %w", lastErr)
}
