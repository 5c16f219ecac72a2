// -----------------------------------------------------------------------
// Scheduler Service - recurring deferred pipeline analysis
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// Service runs the nightly pipeline refresh: on each cron tick it collects
// every open deal and submits one deferred pipeline_analysis batch for the
// set. Deferred mode keeps the recurring cost at the discounted rate.
type Service struct {
	config       *common.SchedulerConfig
	orchestrator interfaces.BatchOrchestrator
	deals        interfaces.DealStorage
	cron         *cron.Cron
	entryID      cron.EntryID
	logger       arbor.ILogger
	mu           sync.Mutex
	running      bool
	lastRun      *time.Time
	lastError    string
}

// NewService creates the pipeline refresh scheduler
func NewService(config *common.SchedulerConfig, orchestrator interfaces.BatchOrchestrator, deals interfaces.DealStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:       config,
		orchestrator: orchestrator,
		deals:        deals,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start registers the refresh job and starts the cron loop. A disabled
// scheduler starts as a no-op so callers never need to branch on config.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled, pipeline refresh will not run")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.refreshPipeline)
	if err != nil {
		return fmt.Errorf("invalid scheduler cron expression %q: %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Msg("Pipeline refresh scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running tick to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Pipeline refresh scheduler stopped")
}

// Status reports the scheduler's current state for the status endpoint
func (s *Service) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"enabled":  s.config.Enabled,
		"running":  s.running,
		"schedule": s.config.Schedule,
	}
	if s.lastRun != nil {
		status["last_run"] = s.lastRun.Format(time.RFC3339)
	}
	if s.lastError != "" {
		status["last_error"] = s.lastError
	}
	if s.running {
		status["next_run"] = s.cron.Entry(s.entryID).Next.Format(time.RFC3339)
	}
	return status
}

// refreshPipeline is the cron tick body
func (s *Service) refreshPipeline() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.lastError = ""
	s.mu.Unlock()

	deals, err := s.deals.ListOpenDeals(ctx)
	if err != nil {
		s.recordError(fmt.Errorf("failed to list open deals: %w", err))
		return
	}
	if len(deals) == 0 {
		s.logger.Debug().Msg("No open deals, skipping scheduled pipeline analysis")
		return
	}

	dealIDs := make([]string, 0, len(deals))
	for _, deal := range deals {
		dealIDs = append(dealIDs, deal.ID)
	}

	job, err := s.orchestrator.Submit(ctx, models.JobTypePipelineAnalysis, dealIDs, nil, models.ModeDeferred)
	if err != nil {
		s.recordError(fmt.Errorf("scheduled pipeline analysis submission failed: %w", err))
		return
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int("deal_count", len(dealIDs)).
		Str("estimated_cost", fmt.Sprintf("%.4f", job.EstimatedCost)).
		Msg("Scheduled pipeline analysis submitted")
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	s.logger.Warn().Err(err).Msg("Pipeline refresh tick failed")
}
