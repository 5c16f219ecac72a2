// -----------------------------------------------------------------------
// AI Service - CRM-facing entry points for bulk AI features
// -----------------------------------------------------------------------

package ai

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/batch"
)

// EnrichRequest asks for AI enrichment of a set of contacts
type EnrichRequest struct {
	ContactIDs []string              `json:"contact_ids" validate:"required,min=1,dive,required"`
	Mode       models.ProcessingMode `json:"mode" validate:"required,oneof=immediate deferred"`
}

// EmailRequest asks for outreach email drafts for a set of contacts
type EmailRequest struct {
	ContactIDs []string              `json:"contact_ids" validate:"required,min=1,dive,required"`
	Campaign   string                `json:"campaign" validate:"required"`
	Tone       string                `json:"tone,omitempty"`
	Mode       models.ProcessingMode `json:"mode" validate:"required,oneof=immediate deferred"`
}

// AnalyzeRequest asks for risk and next-step analysis of a set of deals
type AnalyzeRequest struct {
	DealIDs []string              `json:"deal_ids" validate:"required,min=1,dive,required"`
	Mode    models.ProcessingMode `json:"mode" validate:"required,oneof=immediate deferred"`
}

// ResearchRequest asks for social presence research on a set of contacts
type ResearchRequest struct {
	ContactIDs []string              `json:"contact_ids" validate:"required,min=1,dive,required"`
	Mode       models.ProcessingMode `json:"mode" validate:"required,oneof=immediate deferred"`
}

// Service exposes the CRM's AI features. Every operation fans out to the
// batch orchestrator; nothing here talks to a provider directly.
type Service struct {
	orchestrator interfaces.BatchOrchestrator
	contacts     interfaces.ContactStorage
	deals        interfaces.DealStorage
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewService creates the AI feature service
func NewService(orchestrator interfaces.BatchOrchestrator, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		orchestrator: orchestrator,
		contacts:     storage.ContactStorage(),
		deals:        storage.DealStorage(),
		validate:     validator.New(),
		logger:       logger,
	}
}

// RegisterBuilders wires the per-job-type payload builders into the batch
// service. Builders read the entity at submission time so prompts reflect
// current CRM state.
func (s *Service) RegisterBuilders(batchService *batch.Service) {
	batchService.RegisterBuilder(models.JobTypeContactEnrichment, s.buildContactPayload)
	batchService.RegisterBuilder(models.JobTypeEmailGeneration, s.buildEmailPayload)
	batchService.RegisterBuilder(models.JobTypePipelineAnalysis, s.buildDealPayload)
	batchService.RegisterBuilder(models.JobTypeSocialResearch, s.buildContactPayload)
}

// EnrichContacts submits a contact enrichment batch (3 analyses per contact)
func (s *Service) EnrichContacts(ctx context.Context, req EnrichRequest) (*models.BatchJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid enrichment request: %w", err)
	}
	if err := s.checkContactsExist(ctx, req.ContactIDs); err != nil {
		return nil, err
	}
	return s.orchestrator.Submit(ctx, models.JobTypeContactEnrichment, req.ContactIDs, nil, req.Mode)
}

// GenerateCampaignEmails submits an email generation batch (1 draft per contact)
func (s *Service) GenerateCampaignEmails(ctx context.Context, req EmailRequest) (*models.BatchJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid email request: %w", err)
	}
	if err := s.checkContactsExist(ctx, req.ContactIDs); err != nil {
		return nil, err
	}
	params := map[string]interface{}{
		"campaign": req.Campaign,
		"tone":     req.Tone,
	}
	return s.orchestrator.Submit(ctx, models.JobTypeEmailGeneration, req.ContactIDs, params, req.Mode)
}

// AnalyzePipeline submits a pipeline analysis batch (2 analyses per deal)
func (s *Service) AnalyzePipeline(ctx context.Context, req AnalyzeRequest) (*models.BatchJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid analysis request: %w", err)
	}
	if _, err := s.deals.GetDeals(ctx, req.DealIDs); err != nil {
		return nil, fmt.Errorf("analysis target validation failed: %w", err)
	}
	return s.orchestrator.Submit(ctx, models.JobTypePipelineAnalysis, req.DealIDs, nil, req.Mode)
}

// ResearchSocialProfiles submits a social research batch (2 profiles per contact)
func (s *Service) ResearchSocialProfiles(ctx context.Context, req ResearchRequest) (*models.BatchJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid research request: %w", err)
	}
	if err := s.checkContactsExist(ctx, req.ContactIDs); err != nil {
		return nil, err
	}
	return s.orchestrator.Submit(ctx, models.JobTypeSocialResearch, req.ContactIDs, nil, req.Mode)
}

func (s *Service) checkContactsExist(ctx context.Context, ids []string) error {
	if _, err := s.contacts.GetContacts(ctx, ids); err != nil {
		return fmt.Errorf("target validation failed: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------
// Payload builders
// ----------------------------------------------------------------------

func (s *Service) buildContactPayload(ctx context.Context, entityID, subTask string, params map[string]interface{}) (string, string, error) {
	contact, err := s.contacts.GetContact(ctx, entityID)
	if err != nil {
		return "", "", fmt.Errorf("contact %s: %w", entityID, err)
	}
	system, err := systemForSubTask(subTask)
	if err != nil {
		return "", "", err
	}
	return system, contactPrompt(contact), nil
}

func (s *Service) buildEmailPayload(ctx context.Context, entityID, subTask string, params map[string]interface{}) (string, string, error) {
	contact, err := s.contacts.GetContact(ctx, entityID)
	if err != nil {
		return "", "", fmt.Errorf("contact %s: %w", entityID, err)
	}
	system, err := systemForSubTask(subTask)
	if err != nil {
		return "", "", err
	}
	campaign, _ := params["campaign"].(string)
	tone, _ := params["tone"].(string)
	return system, emailPrompt(contact, campaign, tone), nil
}

func (s *Service) buildDealPayload(ctx context.Context, entityID, subTask string, params map[string]interface{}) (string, string, error) {
	deal, err := s.deals.GetDeal(ctx, entityID)
	if err != nil {
		return "", "", fmt.Errorf("deal %s: %w", entityID, err)
	}
	system, err := systemForSubTask(subTask)
	if err != nil {
		return "", "", err
	}

	// The primary contact is optional context; a dangling reference is not fatal
	var contact *models.Contact
	if deal.ContactID != "" {
		if c, err := s.contacts.GetContact(ctx, deal.ContactID); err == nil {
			contact = c
		}
	}
	return system, dealPrompt(deal, contact), nil
}
