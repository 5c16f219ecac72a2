package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	contact interfaces.ContactStorage
	deal    interfaces.DealStorage
	draft   interfaces.DraftStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		contact: NewContactStorage(db, logger),
		deal:    NewDealStorage(db, logger),
		draft:   NewDraftStorage(db, logger),
		kv:      NewKVStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ContactStorage returns the Contact storage interface
func (m *Manager) ContactStorage() interfaces.ContactStorage {
	return m.contact
}

// DealStorage returns the Deal storage interface
func (m *Manager) DealStorage() interfaces.DealStorage {
	return m.deal
}

// DraftStorage returns the Draft storage interface
func (m *Manager) DraftStorage() interfaces.DraftStorage {
	return m.draft
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
