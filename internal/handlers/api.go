package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
)

// MonitorStatus reports the watcher state for the status endpoint
type MonitorStatus interface {
	ActiveCount() int
}

// SchedulerStatus reports the scheduler state for the status endpoint
type SchedulerStatus interface {
	Status() map[string]interface{}
}

type APIHandler struct {
	orchestrator interfaces.BatchOrchestrator
	monitor      MonitorStatus
	scheduler    SchedulerStatus
	wsHandler    *WebSocketHandler
	startTime    time.Time
	logger       arbor.ILogger
}

func NewAPIHandler(orchestrator interfaces.BatchOrchestrator, monitor MonitorStatus, scheduler SchedulerStatus, wsHandler *WebSocketHandler, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		orchestrator: orchestrator,
		monitor:      monitor,
		scheduler:    scheduler,
		wsHandler:    wsHandler,
		startTime:    time.Now(),
		logger:       logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.Version,
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// StatusHandler returns application status: job counts by state, active
// watchers, scheduler state, and connected websocket clients
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobs, err := h.orchestrator.ListJobs(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs for status")
		WriteError(w, http.StatusInternalServerError, "Failed to collect status")
		return
	}

	byStatus := make(map[string]int)
	for _, job := range jobs {
		byStatus[string(job.Status)]++
	}

	status := map[string]interface{}{
		"version":         common.GetFullVersion(),
		"uptime":          time.Since(h.startTime).Round(time.Second).String(),
		"jobs_total":      len(jobs),
		"jobs_by_status":  byStatus,
		"active_watchers": h.monitor.ActiveCount(),
	}
	if h.scheduler != nil {
		status["scheduler"] = h.scheduler.Status()
	}
	if h.wsHandler != nil {
		status["websocket_clients"] = h.wsHandler.ClientCount()
	}

	WriteJSON(w, http.StatusOK, status)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
