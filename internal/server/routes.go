package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - AI feature submissions
	mux.HandleFunc("/api/ai/enrich", s.app.AIHandler.EnrichHandler)     // POST - contact enrichment
	mux.HandleFunc("/api/ai/emails", s.app.AIHandler.EmailsHandler)     // POST - campaign email generation
	mux.HandleFunc("/api/ai/analyze", s.app.AIHandler.AnalyzeHandler)   // POST - pipeline analysis
	mux.HandleFunc("/api/ai/research", s.app.AIHandler.ResearchHandler) // POST - social profile research

	// API routes - Batch jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)   // GET (list, ?type= filter)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.JobRoutesHandler) // GET /{id}, POST /{id}/cancel

	// API routes - Contacts
	mux.HandleFunc("/api/contacts", s.app.ContactHandler.ContactsHandler)       // GET (list), POST (create)
	mux.HandleFunc("/api/contacts/", s.app.ContactHandler.ContactRoutesHandler) // GET/PUT/DELETE /{id}, GET /{id}/drafts

	// API routes - Deals and drafts
	mux.HandleFunc("/api/deals", s.app.DealHandler.DealsHandler)       // GET (list, ?open=true), POST (create)
	mux.HandleFunc("/api/deals/", s.app.DealHandler.DealRoutesHandler) // GET/PUT/DELETE /{id}
	mux.HandleFunc("/api/drafts", s.app.DealHandler.DraftsHandler)     // GET - all generated drafts

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.APIHandler.StatusHandler)

	// Catch-all for unknown API paths
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
