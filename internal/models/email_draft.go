package models

import "time"

// EmailDraft is a generated campaign email produced by an email_generation
// job. Drafts are stored for review; sending is out of scope.
type EmailDraft struct {
	ID        string    `json:"id" badgerhold:"key"`
	ContactID string    `json:"contact_id"`
	JobID     string    `json:"job_id"`
	Campaign  string    `json:"campaign"`
	Tone      string    `json:"tone,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
