// -----------------------------------------------------------------------
// CRM Service - applies completed batch results to CRM entities
// -----------------------------------------------------------------------

package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/batch"
)

// Service owns the entity-update side of the batch pipeline: it registers
// one result handler per job type and applies each decoded (entity,
// sub-task, body) tuple to the corresponding CRM record.
type Service struct {
	contacts interfaces.ContactStorage
	deals    interfaces.DealStorage
	drafts   interfaces.DraftStorage
	logger   arbor.ILogger
}

// NewService creates the CRM result-application service
func NewService(storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		contacts: storage.ContactStorage(),
		deals:    storage.DealStorage(),
		drafts:   storage.DraftStorage(),
		logger:   logger,
	}
}

// RegisterHandlers wires every job type's result handler into the router
func (s *Service) RegisterHandlers(router *batch.Router) {
	router.RegisterHandler(models.JobTypeContactEnrichment, s.applyEnrichment)
	router.RegisterHandler(models.JobTypeEmailGeneration, s.applyEmailDraft)
	router.RegisterHandler(models.JobTypePipelineAnalysis, s.applyDealAnalysis)
	router.RegisterHandler(models.JobTypeSocialResearch, s.applySocialProfile)
}

// applyEnrichment writes one enrichment sub-task analysis onto a contact
func (s *Service) applyEnrichment(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error {
	return s.contacts.UpdateContact(ctx, entityID, func(contact *models.Contact) error {
		if contact.Enrichment == nil {
			contact.Enrichment = &models.ContactEnrichment{}
		}
		switch subTask {
		case models.SubTaskCompanyProfile:
			contact.Enrichment.CompanyProfile = body
		case models.SubTaskRoleAnalysis:
			contact.Enrichment.RoleAnalysis = body
		case models.SubTaskBuyingSignals:
			contact.Enrichment.BuyingSignals = body
		default:
			return fmt.Errorf("unknown enrichment sub-task: %s", subTask)
		}
		contact.Enrichment.EnrichedAt = time.Now()
		return nil
	})
}

// applyEmailDraft stores a generated email as a new draft linked to the
// contact and the job that produced it
func (s *Service) applyEmailDraft(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error {
	if subTask != models.SubTaskEmailDraft {
		return fmt.Errorf("unknown email generation sub-task: %s", subTask)
	}

	// Confirm the contact still exists before attaching a draft to it
	if _, err := s.contacts.GetContact(ctx, entityID); err != nil {
		return fmt.Errorf("draft target contact %s: %w", entityID, err)
	}

	draft := &models.EmailDraft{
		ID:        common.NewDraftID(),
		ContactID: entityID,
		JobID:     job.ID,
		Campaign:  stringParam(job, "campaign"),
		Tone:      stringParam(job, "tone"),
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.drafts.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("failed to save email draft for contact %s: %w", entityID, err)
	}

	s.logger.Debug().
		Str("draft_id", draft.ID).
		Str("contact_id", entityID).
		Msg("Email draft saved")
	return nil
}

// applyDealAnalysis writes one analysis sub-task result onto a deal
func (s *Service) applyDealAnalysis(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error {
	return s.deals.UpdateDeal(ctx, entityID, func(deal *models.Deal) error {
		if deal.Analysis == nil {
			deal.Analysis = &models.DealAnalysis{}
		}
		switch subTask {
		case models.SubTaskDealRisk:
			deal.Analysis.Risk = body
		case models.SubTaskNextSteps:
			deal.Analysis.NextSteps = body
		default:
			return fmt.Errorf("unknown pipeline analysis sub-task: %s", subTask)
		}
		deal.Analysis.AnalyzedAt = time.Now()
		return nil
	})
}

// applySocialProfile writes one researched network summary onto a contact
func (s *Service) applySocialProfile(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error {
	return s.contacts.UpdateContact(ctx, entityID, func(contact *models.Contact) error {
		if contact.Social == nil {
			contact.Social = &models.SocialProfile{}
		}
		switch subTask {
		case models.SubTaskLinkedIn:
			contact.Social.LinkedIn = body
		case models.SubTaskTwitter:
			contact.Social.Twitter = body
		default:
			return fmt.Errorf("unknown social research sub-task: %s", subTask)
		}
		contact.Social.ResearchedAt = time.Now()
		return nil
	})
}

// stringParam reads a string submission parameter from the job metadata
func stringParam(job *models.BatchJob, key string) string {
	if job == nil || job.Metadata.Params == nil {
		return ""
	}
	if v, ok := job.Metadata.Params[key].(string); ok {
		return v
	}
	return ""
}
