package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// AccountStorage implements the AccountStorage interface for Badger
type AccountStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAccountStorage creates a new AccountStorage instance
func NewAccountStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AccountStorage {
	return &AccountStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AccountStorage) Save(ctx context.Context, account *models.TrackedAccount) error {
	if account.ID == "" {
		return fmt.Errorf("account ID is required")
	}
	account.Username = models.NormalizeUsername(account.Username)

	if err := s.db.Store().Upsert(account.ID, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *AccountStorage) Get(ctx context.Context, id string) (*models.TrackedAccount, error) {
	var account models.TrackedAccount
	if err := s.db.Store().Get(id, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("account not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *AccountStorage) FindByHandle(ctx context.Context, orgID string, platform models.Platform, username string) (*models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	query := badgerhold.Where("OrgID").Eq(orgID).
		And("Platform").Eq(platform).
		And("Username").Eq(models.NormalizeUsername(username))
	if err := s.db.Store().Find(&accounts, query); err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// GetPendingBatch returns up to limit pending accounts with retries below
// maxRetries, ordered oldest last-synced first (never-synced accounts first).
func (s *AccountStorage) GetPendingBatch(ctx context.Context, limit, maxRetries int) ([]*models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	query := badgerhold.Where("SyncStatus").Eq(models.AccountSyncPending).
		And("SyncRetryCount").Lt(maxRetries)
	if err := s.db.Store().Find(&accounts, query); err != nil {
		return nil, fmt.Errorf("failed to query pending accounts: %w", err)
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i].LastSyncedAt, accounts[j].LastSyncedAt
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})

	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}

	result := make([]*models.TrackedAccount, len(accounts))
	for i := range accounts {
		result[i] = &accounts[i]
	}
	return result, nil
}

func (s *AccountStorage) ListByProject(ctx context.Context, projectID string) ([]*models.TrackedAccount, error) {
	return s.list(badgerhold.Where("ProjectID").Eq(projectID))
}

func (s *AccountStorage) ListByOrg(ctx context.Context, orgID string) ([]*models.TrackedAccount, error) {
	return s.list(badgerhold.Where("OrgID").Eq(orgID))
}

func (s *AccountStorage) list(query *badgerhold.Query) ([]*models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	if err := s.db.Store().Find(&accounts, query.SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	result := make([]*models.TrackedAccount, len(accounts))
	for i := range accounts {
		result[i] = &accounts[i]
	}
	return result, nil
}

// ListOrgIDs returns the distinct organization IDs with tracked accounts
func (s *AccountStorage) ListOrgIDs(ctx context.Context) ([]string, error) {
	var accounts []models.TrackedAccount
	if err := s.db.Store().Find(&accounts, nil); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	seen := make(map[string]bool)
	orgIDs := make([]string, 0, len(accounts))
	for i := range accounts {
		if accounts[i].OrgID == "" || seen[accounts[i].OrgID] {
			continue
		}
		seen[accounts[i].OrgID] = true
		orgIDs = append(orgIDs, accounts[i].OrgID)
	}
	sort.Strings(orgIDs)
	return orgIDs, nil
}

func (s *AccountStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.TrackedAccount{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
