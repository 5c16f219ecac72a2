// -----------------------------------------------------------------------
// AI Handler - submission endpoints for bulk AI features
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/services/ai"
)

// AIHandler exposes the four AI feature submission endpoints. Each returns
// the queued job immediately; results arrive asynchronously via the job
// lifecycle and websocket events.
type AIHandler struct {
	aiService *ai.Service
	logger    arbor.ILogger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(aiService *ai.Service, logger arbor.ILogger) *AIHandler {
	return &AIHandler{
		aiService: aiService,
		logger:    logger,
	}
}

// EnrichHandler handles POST /api/ai/enrich
func (h *AIHandler) EnrichHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ai.EnrichRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	job, err := h.aiService.EnrichContacts(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Contact enrichment submission failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// EmailsHandler handles POST /api/ai/emails
func (h *AIHandler) EmailsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ai.EmailRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	job, err := h.aiService.GenerateCampaignEmails(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Email generation submission failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// AnalyzeHandler handles POST /api/ai/analyze
func (h *AIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ai.AnalyzeRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	job, err := h.aiService.AnalyzePipeline(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Pipeline analysis submission failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// ResearchHandler handles POST /api/ai/research
func (h *AIHandler) ResearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ai.ResearchRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	job, err := h.aiService.ResearchSocialProfiles(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Social research submission failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}
