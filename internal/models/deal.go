package models

import (
	"fmt"
	"time"
)

// DealStage represents the pipeline stage of a deal
type DealStage string

const (
	DealStageLead        DealStage = "lead"
	DealStageQualified   DealStage = "qualified"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageClosedWon   DealStage = "closed_won"
	DealStageClosedLost  DealStage = "closed_lost"
)

// IsOpen returns true for stages still in the pipeline
func (s DealStage) IsOpen() bool {
	return s != DealStageClosedWon && s != DealStageClosedLost
}

// DealAnalysis holds the AI-generated pipeline analysis attached to a deal by
// a completed pipeline_analysis job. Each field maps to one sub-task tag.
type DealAnalysis struct {
	Risk       string    `json:"risk,omitempty"`       // sub-task "risk"
	NextSteps  string    `json:"next_steps,omitempty"` // sub-task "nextsteps"
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Deal represents a CRM deal/opportunity
type Deal struct {
	ID        string        `json:"id" toml:"id" badgerhold:"key"`
	ContactID string        `json:"contact_id,omitempty" toml:"contact_id"`
	Name      string        `json:"name" toml:"name"`
	Stage     DealStage     `json:"stage" toml:"stage"`
	Amount    float64       `json:"amount" toml:"amount"`
	Analysis  *DealAnalysis `json:"analysis,omitempty" toml:"-"`
	CreatedAt time.Time     `json:"created_at" toml:"-"`
	UpdatedAt time.Time     `json:"updated_at" toml:"-"`
}

// Validate validates required deal fields
func (d *Deal) Validate() error {
	if d.ID == "" {
		return errRequired("deal ID")
	}
	if d.Name == "" {
		return errRequired("deal name")
	}
	return nil
}

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}
