package interfaces

import (
	"context"

	"github.com/ternarybob/prospect/internal/models"
)

// RemoteBatchStatus is the orchestrator's view of a provider batch state.
// Provider implementations map their native status vocabulary onto this set.
type RemoteBatchStatus string

const (
	RemoteStatusValidating RemoteBatchStatus = "validating"
	RemoteStatusRunning    RemoteBatchStatus = "running"
	RemoteStatusFinalizing RemoteBatchStatus = "finalizing"
	RemoteStatusCompleted  RemoteBatchStatus = "completed"
	RemoteStatusFailed     RemoteBatchStatus = "failed"
	RemoteStatusExpired    RemoteBatchStatus = "expired"
	RemoteStatusCancelled  RemoteBatchStatus = "cancelled"
)

// IsTerminal returns true when the remote batch will make no further progress
func (s RemoteBatchStatus) IsTerminal() bool {
	switch s {
	case RemoteStatusCompleted, RemoteStatusFailed, RemoteStatusExpired, RemoteStatusCancelled:
		return true
	default:
		return false
	}
}

// BatchRequest is one self-describing request inside a bulk submission.
// CustomID carries the encoded correlation id the provider echoes back.
type BatchRequest struct {
	CustomID  string `json:"custom_id"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system,omitempty"`
	Prompt    string `json:"prompt"`
}

// BatchResult is one raw provider result, keyed by the echoed custom id.
// Body is empty and Error set when that individual request failed while the
// batch as a whole succeeded.
type BatchResult struct {
	CustomID string `json:"custom_id"`
	Body     string `json:"body,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchProvider abstracts the bulk-inference provider. Implementations own
// the wire format (file artifact upload, inline request list, JSONL result
// parsing) and the mapping of processing mode to the completion window or
// service tier they support. Exactly one remote batch resource is created
// per successful SubmitBatch call.
type BatchProvider interface {
	// Name identifies the provider for job metadata and logs
	Name() string

	// SubmitBatch packages the requests into a bulk submission, creates the
	// remote batch at the tier matching the processing mode, and returns the
	// remote batch handle.
	SubmitBatch(ctx context.Context, requests []BatchRequest, mode models.ProcessingMode) (string, error)

	// BatchStatus queries the remote batch state
	BatchStatus(ctx context.Context, handle string) (RemoteBatchStatus, error)

	// BatchResults downloads and parses the result artifact. Results are
	// returned in provider order. An error here means the artifact itself
	// was unreadable, not that individual items failed.
	BatchResults(ctx context.Context, handle string) ([]BatchResult, error)
}
