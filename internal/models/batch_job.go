// -----------------------------------------------------------------------
// Batch Job - Lifecycle state machine for bulk inference jobs
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobType represents the category of AI work a batch job performs.
type JobType string

// JobType constants - one per AI-assisted CRM feature
const (
	JobTypeContactEnrichment JobType = "contact_enrichment"
	JobTypeEmailGeneration   JobType = "email_generation"
	JobTypePipelineAnalysis  JobType = "pipeline_analysis"
	JobTypeSocialResearch    JobType = "social_research"
)

// IsValidJobType checks if a given JobType is one of the valid constants
func IsValidJobType(jobType JobType) bool {
	switch jobType {
	case JobTypeContactEnrichment, JobTypeEmailGeneration, JobTypePipelineAnalysis, JobTypeSocialResearch:
		return true
	default:
		return false
	}
}

// Prefix returns the short correlation-id prefix for this job type.
// Prefixes never contain the correlation delimiter ("_").
func (t JobType) Prefix() string {
	switch t {
	case JobTypeContactEnrichment:
		return "enrich"
	case JobTypeEmailGeneration:
		return "email"
	case JobTypePipelineAnalysis:
		return "pipeline"
	case JobTypeSocialResearch:
		return "social"
	default:
		return "unknown"
	}
}

// Sub-task tags identify which analysis a single batch request carries.
// Tags are embedded in correlation ids, so they never contain the
// correlation delimiter ("_").
const (
	SubTaskCompanyProfile = "profile"
	SubTaskRoleAnalysis   = "role"
	SubTaskBuyingSignals  = "signals"
	SubTaskEmailDraft     = "draft"
	SubTaskDealRisk       = "risk"
	SubTaskNextSteps      = "nextsteps"
	SubTaskLinkedIn       = "linkedin"
	SubTaskTwitter        = "twitter"
)

// SubTasks returns the sub-task tags requested per entity for this job type.
// The fan-out ratio (requests per entity) is len(SubTasks()):
//   - contact_enrichment: 3 analyses per contact (profile, role, signals)
//   - email_generation:   1 draft per contact
//   - pipeline_analysis:  2 analyses per deal (risk, nextsteps)
//   - social_research:    2 profiles per contact (linkedin, twitter)
//
// Tags never contain the correlation delimiter ("_").
func (t JobType) SubTasks() []string {
	switch t {
	case JobTypeContactEnrichment:
		return []string{SubTaskCompanyProfile, SubTaskRoleAnalysis, SubTaskBuyingSignals}
	case JobTypeEmailGeneration:
		return []string{SubTaskEmailDraft}
	case JobTypePipelineAnalysis:
		return []string{SubTaskDealRisk, SubTaskNextSteps}
	case JobTypeSocialResearch:
		return []string{SubTaskLinkedIn, SubTaskTwitter}
	default:
		return nil
	}
}

// ProcessingMode selects the provider service tier for a batch job.
type ProcessingMode string

const (
	// ModeImmediate requests the shortest completion window the provider
	// supports, at full per-item price.
	ModeImmediate ProcessingMode = "immediate"
	// ModeDeferred requests the longest, lowest-cost completion window
	// (24-hour scale) in exchange for a discounted per-item rate.
	ModeDeferred ProcessingMode = "deferred"
)

// IsValidProcessingMode checks if a given mode is one of the valid constants
func IsValidProcessingMode(mode ProcessingMode) bool {
	return mode == ModeImmediate || mode == ModeDeferred
}

// BatchJobStatus represents the lifecycle state of a batch job
type BatchJobStatus string

const (
	BatchStatusQueued     BatchJobStatus = "queued"
	BatchStatusProcessing BatchJobStatus = "processing"
	BatchStatusCompleted  BatchJobStatus = "completed"
	BatchStatusFailed     BatchJobStatus = "failed"
)

// rank orders statuses for the monotonic-advance invariant.
// A job may only ever move to a status with a strictly higher rank.
func (s BatchJobStatus) rank() int {
	switch s {
	case BatchStatusQueued:
		return 0
	case BatchStatusProcessing:
		return 1
	case BatchStatusCompleted, BatchStatusFailed:
		return 2
	default:
		return -1
	}
}

// IsTerminal returns true for completed and failed
func (s BatchJobStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// ResultRecord is one decoded provider result, routed back to its entity.
// Body is empty when that individual item failed while the job as a whole
// succeeded; Error carries the per-item failure reason in that case.
type ResultRecord struct {
	CorrelationID string `json:"correlation_id"`
	EntityID      string `json:"entity_id"`
	SubTask       string `json:"sub_task"`
	Body          string `json:"body,omitempty"`
	Error         string `json:"error,omitempty"`
}

// JobMetadata captures the original submission so the result dispatcher can
// re-associate results without re-querying the caller.
type JobMetadata struct {
	EntityIDs    []string               `json:"entity_ids"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Provider     string                 `json:"provider,omitempty"`
	RemoteHandle string                 `json:"remote_handle,omitempty"` // provider batch handle, set after creation
	RequestCount int                    `json:"request_count"`           // envelopes submitted (ItemCount x fan-out)
}

// BatchJob is one tracked unit of bulk asynchronous AI work.
//
// Status advances monotonically queued -> processing -> {completed|failed}
// and never regresses. CompletedAt and Results are set exactly once, on the
// transition into a terminal state. All other fields are immutable after
// creation; mutation must go through the JobStore's serialized update path.
type BatchJob struct {
	ID             string         `json:"id"`
	Type           JobType        `json:"type"`
	Status         BatchJobStatus `json:"status"`
	ItemCount      int            `json:"item_count"`
	EstimatedCost  float64        `json:"estimated_cost"`
	ProcessingMode ProcessingMode `json:"processing_mode"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	Results        []ResultRecord `json:"results,omitempty"`
	Metadata       JobMetadata    `json:"metadata"`
}

// NewBatchJob creates a new batch job in the queued state
func NewBatchJob(id string, jobType JobType, mode ProcessingMode, itemCount int, estimatedCost float64, metadata JobMetadata) *BatchJob {
	return &BatchJob{
		ID:             id,
		Type:           jobType,
		Status:         BatchStatusQueued,
		ItemCount:      itemCount,
		EstimatedCost:  estimatedCost,
		ProcessingMode: mode,
		CreatedAt:      time.Now(),
		Metadata:       metadata,
	}
}

// IsTerminal returns true if the job is in a terminal state
func (j *BatchJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// transition enforces the monotonic-advance invariant
func (j *BatchJob) transition(to BatchJobStatus) error {
	if to.rank() <= j.Status.rank() {
		return fmt.Errorf("invalid status transition %s -> %s for job %s", j.Status, to, j.ID)
	}
	j.Status = to
	return nil
}

// MarkProcessing moves the job from queued to processing
func (j *BatchJob) MarkProcessing() error {
	return j.transition(BatchStatusProcessing)
}

// MarkCompleted moves the job into the completed terminal state, attaching
// the dispatched results and stamping CompletedAt exactly once.
func (j *BatchJob) MarkCompleted(results []ResultRecord) error {
	if err := j.transition(BatchStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	j.CompletedAt = &now
	j.Results = results
	return nil
}

// MarkFailed moves the job into the failed terminal state with an error
// message. Results remain unset.
func (j *BatchJob) MarkFailed(errorMsg string) error {
	if err := j.transition(BatchStatusFailed); err != nil {
		return err
	}
	now := time.Now()
	j.CompletedAt = &now
	j.Error = errorMsg
	return nil
}

// Clone creates a deep copy of the job so registry readers never share
// mutable state with writers.
func (j *BatchJob) Clone() *BatchJob {
	clone := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		clone.CompletedAt = &t
	}
	if j.Results != nil {
		clone.Results = make([]ResultRecord, len(j.Results))
		copy(clone.Results, j.Results)
	}
	clone.Metadata.EntityIDs = append([]string(nil), j.Metadata.EntityIDs...)
	if j.Metadata.Params != nil {
		params := make(map[string]interface{}, len(j.Metadata.Params))
		for k, v := range j.Metadata.Params {
			params[k] = v
		}
		clone.Metadata.Params = params
	}
	return &clone
}
