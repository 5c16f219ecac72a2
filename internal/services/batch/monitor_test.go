package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/storage/memory"
)

func testMonitorConfig() *common.MonitorConfig {
	return &common.MonitorConfig{
		InitialDelayImmediate: 2 * time.Millisecond,
		InitialDelayDeferred:  2 * time.Millisecond,
		PollIntervalImmediate: 2 * time.Millisecond,
		PollIntervalDeferred:  2 * time.Millisecond,
		MaxPolls:              100,
	}
}

// seedProcessingJob registers a processing job with a remote handle, the
// state a job is in when its monitor loop starts
func seedProcessingJob(t *testing.T, store *memory.JobStore, jobType models.JobType) *models.BatchJob {
	t.Helper()

	job := models.NewBatchJob(
		common.NewBatchJobID(jobType, models.ModeImmediate),
		jobType,
		models.ModeImmediate,
		1,
		0.06,
		models.JobMetadata{EntityIDs: []string{"c1"}, Provider: "stub"},
	)
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	err := store.Update(context.Background(), job.ID, func(j *models.BatchJob) error {
		j.Metadata.RemoteHandle = "remote-1"
		return j.MarkProcessing()
	})
	if err != nil {
		t.Fatalf("failed to mark job processing: %v", err)
	}
	return job
}

// newTestMonitor wires a monitor and dispatcher over the stub provider with
// a pass-through result handler
func newTestMonitor(t *testing.T, provider *stubProvider, cfg *common.MonitorConfig) (*Monitor, *memory.JobStore) {
	t.Helper()

	store := memory.NewJobStore()
	logger := arbor.NewLogger()
	router := NewRouter(logger)
	router.RegisterHandler(models.JobTypeContactEnrichment, func(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error {
		return nil
	})
	dispatcher := NewDispatcher(store, provider, router, nil, logger)
	monitor := NewMonitor(cfg, store, provider, dispatcher, nil, logger)
	t.Cleanup(monitor.Stop)
	return monitor, store
}

// waitForTerminal polls the store until the job settles or the deadline hits
func waitForTerminal(t *testing.T, store *memory.JobStore, jobID string) *models.BatchJob {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), jobID)
		if err != nil {
			t.Fatalf("job %s disappeared: %v", jobID, err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func TestMonitor_CompletedBatchDispatchesResults(t *testing.T) {
	cid, _ := NewCorrelationID("enrich", "c1", models.SubTaskCompanyProfile, 0)
	provider := &stubProvider{
		statusSeq: []interfaces.RemoteBatchStatus{
			interfaces.RemoteStatusRunning,
			interfaces.RemoteStatusCompleted,
		},
		results: []interfaces.BatchResult{
			{CustomID: cid.String(), Body: "Acme Corp builds widgets."},
		},
	}
	monitor, store := newTestMonitor(t, provider, testMonitorConfig())
	job := seedProcessingJob(t, store, models.JobTypeContactEnrichment)

	monitor.Start(job.ID)
	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.BatchStatusCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", final.Status, final.Error)
	}
	if final.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if len(final.Results) != 1 {
		t.Fatalf("expected 1 result record, got %d", len(final.Results))
	}
	if final.Results[0].EntityID != "c1" {
		t.Errorf("expected result for entity c1, got %s", final.Results[0].EntityID)
	}
}

func TestMonitor_RemoteFailureFailsJob(t *testing.T) {
	for _, remote := range []interfaces.RemoteBatchStatus{
		interfaces.RemoteStatusFailed,
		interfaces.RemoteStatusExpired,
		interfaces.RemoteStatusCancelled,
	} {
		t.Run(string(remote), func(t *testing.T) {
			provider := &stubProvider{statusSeq: []interfaces.RemoteBatchStatus{remote}}
			monitor, store := newTestMonitor(t, provider, testMonitorConfig())
			job := seedProcessingJob(t, store, models.JobTypeContactEnrichment)

			monitor.Start(job.ID)
			final := waitForTerminal(t, store, job.ID)

			if final.Status != models.BatchStatusFailed {
				t.Fatalf("expected failed, got %s", final.Status)
			}
			if final.Error == "" {
				t.Error("expected failure reason to be recorded")
			}
		})
	}
}

func TestMonitor_StatusErrorRetriesNextTick(t *testing.T) {
	provider := &stubProvider{
		statusSeq: []interfaces.RemoteBatchStatus{
			"", // consumed alongside the error below
			interfaces.RemoteStatusCompleted,
		},
		statusErr: []error{fmt.Errorf("transient 503")},
	}
	monitor, store := newTestMonitor(t, provider, testMonitorConfig())
	job := seedProcessingJob(t, store, models.JobTypeContactEnrichment)

	monitor.Start(job.ID)
	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.BatchStatusCompleted {
		t.Fatalf("expected completed after retry, got %s (error: %s)", final.Status, final.Error)
	}
}

func TestMonitor_PollLimitFailsJob(t *testing.T) {
	cfg := testMonitorConfig()
	cfg.MaxPolls = 3
	provider := &stubProvider{statusSeq: []interfaces.RemoteBatchStatus{interfaces.RemoteStatusRunning}}
	monitor, store := newTestMonitor(t, provider, cfg)
	job := seedProcessingJob(t, store, models.JobTypeContactEnrichment)

	monitor.Start(job.ID)
	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.BatchStatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.Error != "poll limit exceeded after 3 checks" {
		t.Errorf("unexpected failure reason: %s", final.Error)
	}
}

func TestMonitor_StartIsIdempotentAndSkipsTerminalJobs(t *testing.T) {
	provider := &stubProvider{statusSeq: []interfaces.RemoteBatchStatus{interfaces.RemoteStatusRunning}}
	monitor, store := newTestMonitor(t, provider, testMonitorConfig())
	job := seedProcessingJob(t, store, models.JobTypeContactEnrichment)

	monitor.Start(job.ID)
	monitor.Start(job.ID) // duplicate is a no-op
	if got := monitor.ActiveCount(); got != 1 {
		t.Errorf("expected 1 active watcher, got %d", got)
	}

	// Terminal jobs never get a loop
	failed := seedProcessingJob(t, store, models.JobTypeContactEnrichment)
	err := store.Update(context.Background(), failed.ID, func(j *models.BatchJob) error {
		return j.MarkFailed("settled before watch")
	})
	if err != nil {
		t.Fatalf("failed to settle job: %v", err)
	}
	monitor.Start(failed.ID)
	if got := monitor.ActiveCount(); got != 1 {
		t.Errorf("expected 1 active watcher after terminal start, got %d", got)
	}

	// Unknown jobs never get a loop either
	monitor.Start("batch_unknown")
	if got := monitor.ActiveCount(); got != 1 {
		t.Errorf("expected 1 active watcher after unknown start, got %d", got)
	}
}

func TestMonitor_CancelJob(t *testing.T) {
	provider := &stubProvider{statusSeq: []interfaces.RemoteBatchStatus{interfaces.RemoteStatusRunning}}
	monitor, store := newTestMonitor(t, provider, testMonitorConfig())
	job := seedProcessingJob(t, store, models.JobTypeContactEnrichment)
	ctx := context.Background()

	monitor.Start(job.ID)
	if err := monitor.CancelJob(ctx, job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	final, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if final.Status != models.BatchStatusFailed {
		t.Errorf("expected failed after cancel, got %s", final.Status)
	}

	// Cancelling a settled job is an error
	if err := monitor.CancelJob(ctx, job.ID); err == nil {
		t.Error("expected error cancelling an already-settled job")
	}

	// So is cancelling a job that was never submitted
	if err := monitor.CancelJob(ctx, "batch_unknown"); err == nil {
		t.Error("expected error cancelling an unknown job")
	}
}
