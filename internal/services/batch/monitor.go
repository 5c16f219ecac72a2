// -----------------------------------------------------------------------
// Status Monitor - Per-job polling loops against the provider
// -----------------------------------------------------------------------

package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// watchEntry tracks one running monitor loop
type watchEntry struct {
	cancel    context.CancelFunc
	cancelled bool // distinguishes caller cancel from service shutdown
}

// Monitor runs one independent polling loop per open job. Loops share no
// mutable state except the job store; provider calls across all loops go
// through one rate limit inside the provider client. A job is watched by at
// most one loop at a time.
type Monitor struct {
	config     *common.MonitorConfig
	store      interfaces.JobStore
	provider   interfaces.BatchProvider
	dispatcher *Dispatcher
	events     interfaces.EventService
	logger     arbor.ILogger

	mu     sync.Mutex
	active map[string]*watchEntry

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMonitor creates a status monitor
func NewMonitor(
	config *common.MonitorConfig,
	store interfaces.JobStore,
	provider interfaces.BatchProvider,
	dispatcher *Dispatcher,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		config:     config,
		store:      store,
		provider:   provider,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
		active:     make(map[string]*watchEntry),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins monitoring a job. Starting an already-watched or terminal
// job is a logged no-op, so duplicate loops can never race a dispatch.
func (m *Monitor) Start(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[jobID]; exists {
		m.logger.Debug().Str("job_id", jobID).Msg("Monitor already running for job")
		return
	}

	job, err := m.store.Get(m.ctx, jobID)
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Cannot monitor unknown job")
		return
	}
	if job.IsTerminal() {
		m.logger.Debug().Str("job_id", jobID).Str("status", string(job.Status)).Msg("Job already terminal, not monitoring")
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	entry := &watchEntry{cancel: cancel}
	m.active[jobID] = entry

	common.SafeGo(m.logger, "monitor:"+jobID, func() {
		defer m.remove(jobID)
		m.watch(ctx, jobID, job.ProcessingMode, entry)
	})
}

// CancelJob stops the local monitor loop for a job and marks it failed.
// The remote batch may continue running but is no longer tracked.
func (m *Monitor) CancelJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	entry, exists := m.active[jobID]
	if exists {
		entry.cancelled = true
		entry.cancel()
	}
	m.mu.Unlock()

	if !exists {
		// No loop running; still reject cancels for unknown or settled jobs
		job, err := m.store.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if job.IsTerminal() {
			return fmt.Errorf("job %s already %s", jobID, job.Status)
		}
	}

	err := m.store.Update(ctx, jobID, func(j *models.BatchJob) error {
		return j.MarkFailed("cancelled by caller; remote batch no longer tracked")
	})
	if err != nil {
		return err
	}

	m.logger.Info().Str("job_id", jobID).Msg("Job monitoring cancelled")
	m.publishEvent(ctx, interfaces.EventJobFailed, jobID)
	return nil
}

// Stop shuts down all monitor loops (process shutdown, not job failure)
func (m *Monitor) Stop() {
	m.cancel()
}

// ActiveCount returns the number of running monitor loops
func (m *Monitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Monitor) remove(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, jobID)
}

// watch polls the provider until the job reaches a terminal state. The first
// check is delayed so the provider has begun work; subsequent checks run on
// a fixed per-mode cadence.
func (m *Monitor) watch(ctx context.Context, jobID string, mode models.ProcessingMode, entry *watchEntry) {
	m.logger.Debug().
		Str("job_id", jobID).
		Str("mode", string(mode)).
		Dur("initial_delay", m.config.InitialDelay(mode)).
		Dur("poll_interval", m.config.PollInterval(mode)).
		Msg("Monitor loop started")

	select {
	case <-ctx.Done():
		return
	case <-time.After(m.config.InitialDelay(mode)):
	}

	ticker := time.NewTicker(m.config.PollInterval(mode))
	defer ticker.Stop()

	polls := 0
	for {
		done := m.poll(ctx, jobID, &polls)
		if done {
			return
		}

		select {
		case <-ctx.Done():
			// Caller cancellation already transitions the job via CancelJob;
			// service shutdown leaves job state untouched.
			return
		case <-ticker.C:
		}
	}
}

// poll performs one status check. Returns true when the loop should exit.
func (m *Monitor) poll(ctx context.Context, jobID string, polls *int) bool {
	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Monitored job disappeared from registry")
		return true
	}
	if job.IsTerminal() {
		return true
	}

	*polls++
	if m.config.MaxPolls > 0 && *polls > m.config.MaxPolls {
		m.forceFail(ctx, jobID, fmt.Sprintf("poll limit exceeded after %d checks", m.config.MaxPolls))
		return true
	}

	remote, err := m.provider.BatchStatus(ctx, job.Metadata.RemoteHandle)
	if err != nil {
		// Transient polling errors never change job state; retry next tick
		m.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Int("poll", *polls).
			Msg("Batch status check failed, retrying next tick")
		return false
	}

	m.logger.Debug().
		Str("job_id", jobID).
		Str("remote_status", string(remote)).
		Int("poll", *polls).
		Msg("Batch status checked")

	switch remote {
	case interfaces.RemoteStatusCompleted:
		if err := m.dispatcher.Dispatch(ctx, jobID); err != nil {
			m.logger.Error().Err(err).Str("job_id", jobID).Msg("Result dispatch failed")
		}
		return true

	case interfaces.RemoteStatusFailed, interfaces.RemoteStatusExpired, interfaces.RemoteStatusCancelled:
		m.forceFail(ctx, jobID, fmt.Sprintf("provider reported batch %s", remote))
		return true

	default:
		// queued/validating/running/finalizing: stay processing, keep polling
		return false
	}
}

func (m *Monitor) forceFail(ctx context.Context, jobID, reason string) {
	err := m.store.Update(ctx, jobID, func(j *models.BatchJob) error {
		return j.MarkFailed(reason)
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed")
		return
	}
	m.logger.Info().
		Str("job_id", jobID).
		Str("reason", reason).
		Msg("Batch job failed")
	m.publishEvent(ctx, interfaces.EventJobFailed, jobID)
}

func (m *Monitor) publishEvent(ctx context.Context, eventType interfaces.EventType, jobID string) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: jobID}); err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}
