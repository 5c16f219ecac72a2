// -----------------------------------------------------------------------
// Memory Job Store - Volatile in-process batch job registry
// -----------------------------------------------------------------------

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// JobStore implements interfaces.JobStore with a process-lifetime map.
// Mutations run under the write lock, making each Update mutator a single
// critical section per job; readers receive deep copies so no caller ever
// holds a reference into the store's state.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.BatchJob
}

// NewJobStore creates an empty in-memory job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*models.BatchJob),
	}
}

// Create implements interfaces.JobStore
func (s *JobStore) Create(ctx context.Context, job *models.BatchJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get implements interfaces.JobStore
func (s *JobStore) Get(ctx context.Context, id string) (*models.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

// Update implements interfaces.JobStore. The mutator runs on a copy; the
// stored job is only replaced when the mutator succeeds, so a failed
// transition leaves the registry untouched.
func (s *JobStore) Update(ctx context.Context, id string, mutate func(*models.BatchJob) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, id)
	}

	updated := job.Clone()
	if err := mutate(updated); err != nil {
		return err
	}
	s.jobs[id] = updated
	return nil
}

// List implements interfaces.JobStore
func (s *JobStore) List(ctx context.Context) ([]*models.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.BatchJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sortJobs(jobs)
	return jobs, nil
}

// ListByType implements interfaces.JobStore
func (s *JobStore) ListByType(ctx context.Context, jobType models.JobType) ([]*models.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.BatchJob, 0)
	for _, job := range s.jobs {
		if job.Type == jobType {
			jobs = append(jobs, job.Clone())
		}
	}
	sortJobs(jobs)
	return jobs, nil
}

// sortJobs orders newest first, with id as a tiebreaker for stable output
func sortJobs(jobs []*models.BatchJob) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
