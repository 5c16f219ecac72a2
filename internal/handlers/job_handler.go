// -----------------------------------------------------------------------
// Job Handler - batch job inspection and cancellation
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// JobHandler exposes batch job queries and cancellation
type JobHandler struct {
	orchestrator interfaces.BatchOrchestrator
	logger       arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(orchestrator interfaces.BatchOrchestrator, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ListJobsHandler handles GET /api/jobs with an optional ?type= filter
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var jobs []*models.BatchJob
	var err error

	if typeFilter := r.URL.Query().Get("type"); typeFilter != "" {
		jobType := models.JobType(typeFilter)
		if !models.IsValidJobType(jobType) {
			WriteError(w, http.StatusBadRequest, "Unknown job type: "+typeFilter)
			return
		}
		jobs, err = h.orchestrator.ListJobsByType(r.Context(), jobType)
	} else {
		jobs, err = h.orchestrator.ListJobs(r.Context())
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// JobRoutesHandler handles /api/jobs/{id} and /api/jobs/{id}/cancel
func (h *JobHandler) JobRoutesHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.getJob(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cancel":
		h.cancelJob(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (h *JobHandler) getJob(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	job, err := h.orchestrator.GetJob(r.Context(), id)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *JobHandler) cancelJob(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.orchestrator.Cancel(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Str("job_id", id).Msg("Job cancellation failed")
		WriteStorageError(w, err)
		return
	}

	h.logger.Info().Str("job_id", id).Msg("Job cancelled")
	WriteSuccess(w, "Job cancelled")
}
