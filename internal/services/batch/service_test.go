package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/storage/memory"
)

// stubProvider is a scriptable in-memory BatchProvider for tests
type stubProvider struct {
	mu        sync.Mutex
	submitErr error
	statusSeq []interfaces.RemoteBatchStatus
	statusErr []error
	statusIdx int
	results   []interfaces.BatchResult
	resultErr error
	submitted [][]interfaces.BatchRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SubmitBatch(ctx context.Context, requests []interfaces.BatchRequest, mode models.ProcessingMode) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return "", p.submitErr
	}
	p.submitted = append(p.submitted, requests)
	return fmt.Sprintf("remote-%d", len(p.submitted)), nil
}

func (p *stubProvider) BatchStatus(ctx context.Context, handle string) (interfaces.RemoteBatchStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.statusIdx
	if idx >= len(p.statusSeq) {
		idx = len(p.statusSeq) - 1
	}
	p.statusIdx++
	if idx < len(p.statusErr) && p.statusErr[idx] != nil {
		return "", p.statusErr[idx]
	}
	return p.statusSeq[idx], nil
}

func (p *stubProvider) BatchResults(ctx context.Context, handle string) ([]interfaces.BatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resultErr != nil {
		return nil, p.resultErr
	}
	return p.results, nil
}

func (p *stubProvider) submittedRequests() []interfaces.BatchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.submitted) == 0 {
		return nil
	}
	return p.submitted[len(p.submitted)-1]
}

// testConfig produces a config with poll timings fast enough for tests
func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Monitor.InitialDelayImmediate = 5 * time.Millisecond
	cfg.Monitor.InitialDelayDeferred = 5 * time.Millisecond
	cfg.Monitor.PollIntervalImmediate = 5 * time.Millisecond
	cfg.Monitor.PollIntervalDeferred = 5 * time.Millisecond
	cfg.Monitor.MaxPolls = 50
	return cfg
}

// newTestService wires a Service around the stub provider with a no-op
// builder and handler registered for every job type
func newTestService(t *testing.T, provider *stubProvider) (*Service, *memory.JobStore) {
	t.Helper()

	store := memory.NewJobStore()
	logger := arbor.NewLogger()
	router := NewRouter(logger)
	svc := NewService(testConfig(), store, provider, router, nil, logger)
	t.Cleanup(svc.Stop)

	for _, jobType := range []models.JobType{
		models.JobTypeContactEnrichment,
		models.JobTypeEmailGeneration,
		models.JobTypePipelineAnalysis,
		models.JobTypeSocialResearch,
	} {
		svc.RegisterBuilder(jobType, func(ctx context.Context, entityID, subTask string, params map[string]interface{}) (string, string, error) {
			return "system for " + subTask, "prompt for " + entityID, nil
		})
		router.RegisterHandler(jobType, func(ctx context.Context, job *models.BatchJob, entityID, subTask, body string) error {
			return nil
		})
	}
	return svc, store
}

func TestSubmit_HappyPath(t *testing.T) {
	provider := &stubProvider{statusSeq: []interfaces.RemoteBatchStatus{interfaces.RemoteStatusRunning}}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	job, err := svc.Submit(ctx, models.JobTypeContactEnrichment, []string{"c1", "c2"}, nil, models.ModeImmediate)
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.BatchStatusProcessing, job.Status)
	assert.Equal(t, 2, job.ItemCount)
	assert.Equal(t, "remote-1", job.Metadata.RemoteHandle)
	assert.Equal(t, 6, job.Metadata.RequestCount) // 2 contacts x 3 sub-tasks
	assert.InDelta(t, 0.12, job.EstimatedCost, 1e-9)
	assert.Nil(t, job.CompletedAt)

	// Every envelope carries a decodable, unique correlation id
	requests := provider.submittedRequests()
	require.Len(t, requests, 6)
	seen := make(map[string]bool)
	for _, req := range requests {
		cid, err := ParseCorrelationID(req.CustomID)
		require.NoError(t, err, "correlation id %q must decode", req.CustomID)
		assert.Equal(t, "enrich", cid.TaskPrefix)
		assert.False(t, seen[req.CustomID], "duplicate correlation id %s", req.CustomID)
		seen[req.CustomID] = true
	}
}

func TestSubmit_DeferredModeDiscountsCost(t *testing.T) {
	provider := &stubProvider{statusSeq: []interfaces.RemoteBatchStatus{interfaces.RemoteStatusRunning}}
	svc, _ := newTestService(t, provider)

	job, err := svc.Submit(context.Background(), models.JobTypeEmailGeneration, []string{"c1"}, nil, models.ModeDeferred)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, job.EstimatedCost, 1e-9)
	assert.Equal(t, models.ModeDeferred, job.ProcessingMode)
}

func TestSubmit_ValidationRejectsBeforeJobCreation(t *testing.T) {
	provider := &stubProvider{}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	_, err := svc.Submit(ctx, models.JobType("bogus"), []string{"c1"}, nil, models.ModeImmediate)
	assert.Error(t, err)

	_, err = svc.Submit(ctx, models.JobTypeContactEnrichment, nil, nil, models.ModeImmediate)
	assert.Error(t, err)

	_, err = svc.Submit(ctx, models.JobTypeContactEnrichment, []string{"c1", ""}, nil, models.ModeImmediate)
	assert.Error(t, err)

	_, err = svc.Submit(ctx, models.JobTypeContactEnrichment, []string{"c1"}, nil, models.ProcessingMode("sometime"))
	assert.Error(t, err)

	// No job record exists for any rejected submission
	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSubmit_BuilderFailureFailsJob(t *testing.T) {
	provider := &stubProvider{}
	svc, store := newTestService(t, provider)
	svc.RegisterBuilder(models.JobTypeSocialResearch, func(ctx context.Context, entityID, subTask string, params map[string]interface{}) (string, string, error) {
		return "", "", fmt.Errorf("contact vanished")
	})

	_, err := svc.Submit(context.Background(), models.JobTypeSocialResearch, []string{"c1"}, nil, models.ModeImmediate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact vanished")

	// The registered job transitioned to failed and is still queryable
	jobs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.BatchStatusFailed, jobs[0].Status)
	assert.NotNil(t, jobs[0].CompletedAt)

	// Nothing reached the provider
	assert.Nil(t, provider.submittedRequests())
}

func TestSubmit_ProviderFailureFailsJob(t *testing.T) {
	provider := &stubProvider{submitErr: fmt.Errorf("upstream unavailable")}
	svc, store := newTestService(t, provider)

	_, err := svc.Submit(context.Background(), models.JobTypePipelineAnalysis, []string{"d1"}, nil, models.ModeImmediate)
	require.Error(t, err)

	jobs, _ := store.List(context.Background())
	require.Len(t, jobs, 1)
	assert.Equal(t, models.BatchStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "provider batch creation failed")
}

func TestSubmit_EntityIDWithDelimiterIsRejected(t *testing.T) {
	provider := &stubProvider{}
	svc, store := newTestService(t, provider)

	_, err := svc.Submit(context.Background(), models.JobTypeContactEnrichment, []string{"contact_1"}, nil, models.ModeImmediate)
	require.Error(t, err)

	// Encode failure surfaces as a failed submission, not a misrouted batch
	jobs, _ := store.List(context.Background())
	require.Len(t, jobs, 1)
	assert.Equal(t, models.BatchStatusFailed, jobs[0].Status)
}

func TestCancel_UnknownJob(t *testing.T) {
	provider := &stubProvider{}
	svc, _ := newTestService(t, provider)

	err := svc.Cancel(context.Background(), "batch_missing")
	assert.Error(t, err)
}
