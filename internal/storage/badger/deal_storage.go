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

// DealStorage implements the DealStorage interface for Badger
type DealStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDealStorage creates a new DealStorage instance
func NewDealStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DealStorage {
	return &DealStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDeal inserts or updates a deal
func (s *DealStorage) SaveDeal(ctx context.Context, deal *models.Deal) error {
	if err := deal.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.UpdatedAt = now

	if err := s.db.Store().Upsert(deal.ID, deal); err != nil {
		return fmt.Errorf("failed to save deal: %w", err)
	}
	return nil
}

// GetDeal retrieves a deal by ID
func (s *DealStorage) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	var deal models.Deal
	err := s.db.Store().Get(id, &deal)
	if err == badgerhold.ErrNotFound {
		return nil, fmt.Errorf("deal %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return &deal, nil
}

// GetDeals retrieves the deals for the given ids; a missing id is an error
func (s *DealStorage) GetDeals(ctx context.Context, ids []string) ([]*models.Deal, error) {
	deals := make([]*models.Deal, 0, len(ids))
	for _, id := range ids {
		deal, err := s.GetDeal(ctx, id)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, nil
}

// ListDeals returns all deals, newest first
func (s *DealStorage) ListDeals(ctx context.Context) ([]*models.Deal, error) {
	var deals []models.Deal
	if err := s.db.Store().Find(&deals, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return dealPointers(deals), nil
}

// ListOpenDeals returns deals whose stage is still in the pipeline
func (s *DealStorage) ListOpenDeals(ctx context.Context) ([]*models.Deal, error) {
	var deals []models.Deal
	query := badgerhold.Where("Stage").Ne(models.DealStageClosedWon).And("Stage").Ne(models.DealStageClosedLost)
	if err := s.db.Store().Find(&deals, query); err != nil {
		return nil, fmt.Errorf("failed to list open deals: %w", err)
	}
	return dealPointers(deals), nil
}

// UpdateDeal applies the mutator to the stored deal and persists it
func (s *DealStorage) UpdateDeal(ctx context.Context, id string, mutate func(*models.Deal) error) error {
	deal, err := s.GetDeal(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(deal); err != nil {
		return err
	}
	deal.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(deal.ID, deal); err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	return nil
}

// DeleteDeal removes a deal by ID
func (s *DealStorage) DeleteDeal(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Deal{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("deal %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil
}

func dealPointers(deals []models.Deal) []*models.Deal {
	result := make([]*models.Deal, len(deals))
	for i := range deals {
		result[i] = &deals[i]
	}
	return result
}
