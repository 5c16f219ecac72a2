package interfaces

import (
	"context"

	"github.com/ternarybob/prospect/internal/models"
)

// BatchOrchestrator is the public surface of the batch job engine, exposed
// to the HTTP trigger layer, the scheduler, and observability tooling.
type BatchOrchestrator interface {
	// Submit validates the request, registers a job, packages the per-entity
	// request envelopes into one bulk submission, opens a remote batch, and
	// starts monitoring. Validation and submission errors are returned
	// synchronously; a job that failed during submission is still queryable.
	Submit(ctx context.Context, jobType models.JobType, entityIDs []string, params map[string]interface{}, mode models.ProcessingMode) (*models.BatchJob, error)

	// GetJob returns a snapshot of a job, or ErrJobNotFound
	GetJob(ctx context.Context, id string) (*models.BatchJob, error)

	// ListJobs returns snapshots of all jobs, newest first
	ListJobs(ctx context.Context) ([]*models.BatchJob, error)

	// ListJobsByType returns snapshots of all jobs of one type, newest first
	ListJobsByType(ctx context.Context, jobType models.JobType) ([]*models.BatchJob, error)

	// Cancel stops the local monitor loop for a job and marks it failed.
	// The remote batch may continue but is no longer tracked.
	Cancel(ctx context.Context, id string) error
}
