package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

// ResultHandler applies one decoded result to its target entity. Handlers
// are owned by the entity-update collaborators (CRM services), not the
// orchestrator; the orchestrator only guarantees correct, in-order delivery
// of (entityID, subTask, body) tuples. The job is passed read-only so
// handlers can reach submission parameters.
type ResultHandler func(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error

// Router maps job types to their result handlers
type Router struct {
	handlers map[models.JobType]ResultHandler
	mu       sync.RWMutex
	logger   arbor.ILogger
}

// NewRouter creates an empty result router
func NewRouter(logger arbor.ILogger) *Router {
	return &Router{
		handlers: make(map[models.JobType]ResultHandler),
		logger:   logger,
	}
}

// RegisterHandler registers the result handler for a job type
func (r *Router) RegisterHandler(jobType models.JobType, handler ResultHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[jobType] = handler
	r.logger.Debug().
		Str("job_type", string(jobType)).
		Msg("Result handler registered")
}

// Handler returns the handler for a job type
func (r *Router) Handler(jobType models.JobType) (ResultHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[jobType]
	return handler, ok
}

// invoke calls a handler with panic recovery so a single misbehaving
// entity update cannot abort the remaining records of a dispatch.
func (r *Router) invoke(ctx context.Context, handler ResultHandler, job *models.BatchJob, entityID, subTask, body string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("result handler panicked: %v", rec)
		}
	}()
	return handler(ctx, job, entityID, subTask, body)
}
