package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// ContactStorage implements the ContactStorage interface for Badger
type ContactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewContactStorage creates a new ContactStorage instance
func NewContactStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ContactStorage {
	return &ContactStorage{
		db:     db,
		logger: logger,
	}
}

// SaveContact inserts or updates a contact
func (s *ContactStorage) SaveContact(ctx context.Context, contact *models.Contact) error {
	if err := contact.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	if err := s.db.Store().Upsert(contact.ID, contact); err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// GetContact retrieves a contact by ID
func (s *ContactStorage) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.Store().Get(id, &contact)
	if err == badgerhold.ErrNotFound {
		return nil, fmt.Errorf("contact %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return &contact, nil
}

// GetContacts retrieves the contacts for the given ids; a missing id is an error
func (s *ContactStorage) GetContacts(ctx context.Context, ids []string) ([]*models.Contact, error) {
	contacts := make([]*models.Contact, 0, len(ids))
	for _, id := range ids {
		contact, err := s.GetContact(ctx, id)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// ListContacts returns all contacts, newest first
func (s *ContactStorage) ListContacts(ctx context.Context) ([]*models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.Store().Find(&contacts, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	result := make([]*models.Contact, len(contacts))
	for i := range contacts {
		result[i] = &contacts[i]
	}
	return result, nil
}

// UpdateContact applies the mutator to the stored contact and persists it
func (s *ContactStorage) UpdateContact(ctx context.Context, id string, mutate func(*models.Contact) error) error {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(contact); err != nil {
		return err
	}
	contact.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(contact.ID, contact); err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return nil
}

// DeleteContact removes a contact by ID
func (s *ContactStorage) DeleteContact(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Contact{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("contact %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return nil
}
