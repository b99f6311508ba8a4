package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
)

// Manager aggregates all typed storages over one Badger connection
type Manager struct {
	db        *BadgerDB
	accounts  interfaces.AccountStorage
	videos    interfaces.VideoStorage
	sessions  interfaces.SessionStorage
	quotas    interfaces.QuotaStorage
	audit     interfaces.AuditStorage
	prefs     interfaces.PrefsStorage
	snapshots interfaces.SnapshotStorage
}

// NewManager opens the database and constructs all typed storages
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:        db,
		accounts:  NewAccountStorage(db, logger),
		videos:    NewVideoStorage(db, logger),
		sessions:  NewSessionStorage(db, logger),
		quotas:    NewQuotaStorage(db, logger),
		audit:     NewAuditStorage(db, logger),
		prefs:     NewPrefsStorage(db, logger),
		snapshots: NewSnapshotStorage(db, logger),
	}, nil
}

func (m *Manager) Accounts() interfaces.AccountStorage   { return m.accounts }
func (m *Manager) Videos() interfaces.VideoStorage       { return m.videos }
func (m *Manager) Sessions() interfaces.SessionStorage   { return m.sessions }
func (m *Manager) Quotas() interfaces.QuotaStorage       { return m.quotas }
func (m *Manager) Audit() interfaces.AuditStorage        { return m.audit }
func (m *Manager) Prefs() interfaces.PrefsStorage        { return m.prefs }
func (m *Manager) Snapshots() interfaces.SnapshotStorage { return m.snapshots }

// Close closes the underlying database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
