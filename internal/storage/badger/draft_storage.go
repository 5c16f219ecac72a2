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

// DraftStorage implements the DraftStorage interface for Badger
type DraftStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDraftStorage creates a new DraftStorage instance
func NewDraftStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DraftStorage {
	return &DraftStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDraft inserts or updates an email draft
func (s *DraftStorage) SaveDraft(ctx context.Context, draft *models.EmailDraft) error {
	if draft.ID == "" {
		return fmt.Errorf("draft ID is required")
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(draft.ID, draft); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// ListDrafts returns all email drafts, newest first
func (s *DraftStorage) ListDrafts(ctx context.Context) ([]*models.EmailDraft, error) {
	var drafts []models.EmailDraft
	if err := s.db.Store().Find(&drafts, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return draftPointers(drafts), nil
}

// ListDraftsByContact returns the drafts generated for a single contact
func (s *DraftStorage) ListDraftsByContact(ctx context.Context, contactID string) ([]*models.EmailDraft, error) {
	var drafts []models.EmailDraft
	if err := s.db.Store().Find(&drafts, badgerhold.Where("ContactID").Eq(contactID).SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list drafts for contact %s: %w", contactID, err)
	}
	return draftPointers(drafts), nil
}

func draftPointers(drafts []models.EmailDraft) []*models.EmailDraft {
	result := make([]*models.EmailDraft, len(drafts))
	for i := range drafts {
		result[i] = &drafts[i]
	}
	return result
}
