package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/prospect/internal/models"
)

// ErrJobNotFound is returned when a job id is not present in the registry
var ErrJobNotFound = errors.New("job not found")

// JobStore is the batch job registry. The reference behavior is volatile:
// job state lives for the process lifetime only, and callers may query a job
// indefinitely until restart. The store is the single shared mutable
// resource of the orchestrator, so every mutation goes through Update, which
// runs the mutator atomically with respect to concurrent readers and other
// updates of the same job ("read status, decide, write status" is one
// critical section).
type JobStore interface {
	// Create registers a new job. Fails if the id already exists.
	Create(ctx context.Context, job *models.BatchJob) error

	// Get returns a snapshot of the job, or ErrJobNotFound
	Get(ctx context.Context, id string) (*models.BatchJob, error)

	// Update applies the mutator to the stored job under the store's write
	// serialization. A mutator error aborts the update and is returned.
	Update(ctx context.Context, id string, mutate func(*models.BatchJob) error) error

	// List returns snapshots of all jobs, newest first
	List(ctx context.Context) ([]*models.BatchJob, error)

	// ListByType returns snapshots of all jobs of the given type, newest first
	ListByType(ctx context.Context, jobType models.JobType) ([]*models.BatchJob, error)
}
