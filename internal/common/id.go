package common

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ternarybob/prospect/internal/models"
)

// NewBatchJobID generates a unique batch job ID tagged with the job type and
// processing mode for observability. The tags are never parsed for logic.
// Format: batch_<type-prefix>_<mode>_<uuid>
func NewBatchJobID(jobType models.JobType, mode models.ProcessingMode) string {
	return fmt.Sprintf("batch_%s_%s_%s", jobType.Prefix(), mode, uuid.New().String())
}

// NewContactID generates a unique contact ID. Plain UUIDs keep entity ids
// free of the correlation delimiter.
func NewContactID() string {
	return uuid.New().String()
}

// NewDealID generates a unique deal ID
func NewDealID() string {
	return uuid.New().String()
}

// NewDraftID generates a unique email draft ID
func NewDraftID() string {
	return uuid.New().String()
}
