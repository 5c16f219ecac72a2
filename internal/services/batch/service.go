// -----------------------------------------------------------------------
// Batch Service - Submission pipeline and public orchestrator surface
// -----------------------------------------------------------------------

package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// PayloadBuilder produces the task-specific request body for one
// (entity, sub-task) pair. Builders are registered per job type by the AI
// trigger layer and close over the entity storage they need; the
// orchestrator treats the payload as opaque.
type PayloadBuilder func(ctx context.Context, entityID, subTask string, params map[string]interface{}) (system, prompt string, err error)

// Service implements the batch job orchestration engine: it turns a list of
// entity ids into a tracked, asynchronously-completing bulk submission and
// routes heterogeneous results back to the correct entities on completion.
type Service struct {
	config    *common.Config
	store     interfaces.JobStore
	provider  interfaces.BatchProvider
	estimator *CostEstimator
	router    *Router
	monitor   *Monitor
	events    interfaces.EventService
	logger    arbor.ILogger

	buildersMu sync.RWMutex
	builders   map[models.JobType]PayloadBuilder
}

// NewService creates the batch orchestration service and its monitor
func NewService(
	config *common.Config,
	store interfaces.JobStore,
	provider interfaces.BatchProvider,
	router *Router,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	dispatcher := NewDispatcher(store, provider, router, events, logger)
	monitor := NewMonitor(&config.Monitor, store, provider, dispatcher, events, logger)

	return &Service{
		config:    config,
		store:     store,
		provider:  provider,
		estimator: NewCostEstimator(&config.Pricing),
		router:    router,
		monitor:   monitor,
		events:    events,
		logger:    logger,
		builders:  make(map[models.JobType]PayloadBuilder),
	}
}

// Router returns the result router for handler registration
func (s *Service) Router() *Router {
	return s.router
}

// Estimator returns the cost estimator
func (s *Service) Estimator() *CostEstimator {
	return s.estimator
}

// Monitor returns the status monitor (exposed for resumption and tests)
func (s *Service) Monitor() *Monitor {
	return s.monitor
}

// RegisterBuilder registers the payload builder for a job type
func (s *Service) RegisterBuilder(jobType models.JobType, builder PayloadBuilder) {
	s.buildersMu.Lock()
	defer s.buildersMu.Unlock()

	s.builders[jobType] = builder
	s.logger.Debug().
		Str("job_type", string(jobType)).
		Msg("Payload builder registered")
}

func (s *Service) builder(jobType models.JobType) (PayloadBuilder, bool) {
	s.buildersMu.RLock()
	defer s.buildersMu.RUnlock()

	b, ok := s.builders[jobType]
	return b, ok
}

// Submit implements interfaces.BatchOrchestrator.
//
// Validation failures reject the call before any job is registered. After
// the job exists, any packaging/upload/creation failure transitions it to
// failed and is surfaced synchronously to the caller; no monitor is started
// for a failed submission. On success exactly one remote batch resource has
// been created, the job is processing, and its monitor loop is running.
func (s *Service) Submit(ctx context.Context, jobType models.JobType, entityIDs []string, params map[string]interface{}, mode models.ProcessingMode) (*models.BatchJob, error) {
	// Validation - rejected before any job object is created
	if !models.IsValidJobType(jobType) {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
	if !models.IsValidProcessingMode(mode) {
		return nil, fmt.Errorf("invalid processing mode: %s", mode)
	}
	if len(entityIDs) == 0 {
		return nil, fmt.Errorf("entity id list cannot be empty")
	}
	for _, id := range entityIDs {
		if id == "" {
			return nil, fmt.Errorf("entity id cannot be empty")
		}
	}
	builder, ok := s.builder(jobType)
	if !ok {
		return nil, fmt.Errorf("no payload builder registered for job type %s", jobType)
	}
	if _, ok := s.router.Handler(jobType); !ok {
		return nil, fmt.Errorf("no result handler registered for job type %s", jobType)
	}

	estimatedCost := s.estimator.Estimate(jobType, len(entityIDs), mode)

	job := models.NewBatchJob(
		common.NewBatchJobID(jobType, mode),
		jobType,
		mode,
		len(entityIDs),
		estimatedCost,
		models.JobMetadata{
			EntityIDs: append([]string(nil), entityIDs...),
			Params:    params,
			Provider:  s.provider.Name(),
		},
	)

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("type", string(jobType)).
		Str("mode", string(mode)).
		Int("item_count", job.ItemCount).
		Float64("estimated_cost", estimatedCost).
		Msg("Batch job registered")

	// Package the per-entity request envelopes
	requests, err := s.buildEnvelopes(ctx, job, builder, params)
	if err != nil {
		return s.failSubmission(ctx, job.ID, fmt.Errorf("failed to package requests: %w", err))
	}

	// Upload the bulk artifact and open the remote batch
	handle, err := s.provider.SubmitBatch(ctx, requests, mode)
	if err != nil {
		return s.failSubmission(ctx, job.ID, fmt.Errorf("provider batch creation failed: %w", err))
	}

	// queued -> processing, record the remote handle for the monitor
	err = s.store.Update(ctx, job.ID, func(j *models.BatchJob) error {
		j.Metadata.RemoteHandle = handle
		j.Metadata.RequestCount = len(requests)
		return j.MarkProcessing()
	})
	if err != nil {
		return s.failSubmission(ctx, job.ID, fmt.Errorf("failed to record remote batch handle: %w", err))
	}

	s.monitor.Start(job.ID)

	s.publishEvent(ctx, interfaces.EventJobSubmitted, job.ID)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("remote_handle", handle).
		Int("request_count", len(requests)).
		Msg("Batch submitted to provider")

	return s.store.Get(ctx, job.ID)
}

// buildEnvelopes encodes one request per (entity, sub-task) pair. The
// running ordinal keeps correlation ids unique even if an entity id appears
// twice in the submission.
func (s *Service) buildEnvelopes(ctx context.Context, job *models.BatchJob, builder PayloadBuilder, params map[string]interface{}) ([]interfaces.BatchRequest, error) {
	subTasks := job.Type.SubTasks()
	requests := make([]interfaces.BatchRequest, 0, len(job.Metadata.EntityIDs)*len(subTasks))

	ordinal := 0
	for _, entityID := range job.Metadata.EntityIDs {
		for _, subTask := range subTasks {
			cid, err := NewCorrelationID(job.Type.Prefix(), entityID, subTask, ordinal)
			if err != nil {
				return nil, err
			}
			ordinal++

			system, prompt, err := builder(ctx, entityID, subTask, params)
			if err != nil {
				return nil, fmt.Errorf("payload for entity %s sub-task %s: %w", entityID, subTask, err)
			}

			requests = append(requests, interfaces.BatchRequest{
				CustomID:  cid.String(),
				Model:     s.config.Provider.Model,
				MaxTokens: s.config.Provider.MaxTokens,
				System:    system,
				Prompt:    prompt,
			})
		}
	}

	return requests, nil
}

// failSubmission marks an already-registered job failed and returns the
// submission error synchronously to the caller.
func (s *Service) failSubmission(ctx context.Context, jobID string, cause error) (*models.BatchJob, error) {
	if err := s.store.Update(ctx, jobID, func(j *models.BatchJob) error {
		return j.MarkFailed(cause.Error())
	}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed after submission error")
	}

	s.logger.Error().
		Err(cause).
		Str("job_id", jobID).
		Msg("Batch submission failed")

	s.publishEvent(ctx, interfaces.EventJobFailed, jobID)

	return nil, cause
}

// GetJob implements interfaces.BatchOrchestrator
func (s *Service) GetJob(ctx context.Context, id string) (*models.BatchJob, error) {
	return s.store.Get(ctx, id)
}

// ListJobs implements interfaces.BatchOrchestrator
func (s *Service) ListJobs(ctx context.Context) ([]*models.BatchJob, error) {
	return s.store.List(ctx)
}

// ListJobsByType implements interfaces.BatchOrchestrator
func (s *Service) ListJobsByType(ctx context.Context, jobType models.JobType) ([]*models.BatchJob, error) {
	return s.store.ListByType(ctx, jobType)
}

// Cancel implements interfaces.BatchOrchestrator
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.monitor.CancelJob(ctx, id)
}

// Stop shuts down all monitor loops. Job state stays queryable.
func (s *Service) Stop() {
	s.monitor.Stop()
}

func (s *Service) publishEvent(ctx context.Context, eventType interfaces.EventType, jobID string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: jobID}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}
