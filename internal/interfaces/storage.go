package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/prospect/internal/models"
)

// ErrNotFound is returned when an entity is not present in storage
var ErrNotFound = errors.New("not found")

// ContactStorage defines operations for contact persistence
type ContactStorage interface {
	SaveContact(ctx context.Context, contact *models.Contact) error
	GetContact(ctx context.Context, id string) (*models.Contact, error)
	// GetContacts returns the contacts for the given ids; a missing id is an error
	GetContacts(ctx context.Context, ids []string) ([]*models.Contact, error)
	ListContacts(ctx context.Context) ([]*models.Contact, error)
	// UpdateContact applies the mutator to the stored contact and persists it
	UpdateContact(ctx context.Context, id string, mutate func(*models.Contact) error) error
	DeleteContact(ctx context.Context, id string) error
}

// DealStorage defines operations for deal persistence
type DealStorage interface {
	SaveDeal(ctx context.Context, deal *models.Deal) error
	GetDeal(ctx context.Context, id string) (*models.Deal, error)
	GetDeals(ctx context.Context, ids []string) ([]*models.Deal, error)
	ListDeals(ctx context.Context) ([]*models.Deal, error)
	// ListOpenDeals returns deals whose stage is still in the pipeline
	ListOpenDeals(ctx context.Context) ([]*models.Deal, error)
	UpdateDeal(ctx context.Context, id string, mutate func(*models.Deal) error) error
	DeleteDeal(ctx context.Context, id string) error
}

// DraftStorage defines operations for generated email drafts
type DraftStorage interface {
	SaveDraft(ctx context.Context, draft *models.EmailDraft) error
	ListDrafts(ctx context.Context) ([]*models.EmailDraft, error)
	ListDraftsByContact(ctx context.Context, contactID string) ([]*models.EmailDraft, error)
}

// StorageManager provides access to all entity storage interfaces
type StorageManager interface {
	ContactStorage() ContactStorage
	DealStorage() DealStorage
	DraftStorage() DraftStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
