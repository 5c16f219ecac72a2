package models

import "time"

// ContactEnrichment holds the AI-generated analyses attached to a contact by
// a completed contact_enrichment job. Each field maps to one sub-task tag.
type ContactEnrichment struct {
	CompanyProfile string    `json:"company_profile,omitempty"` // sub-task "profile"
	RoleAnalysis   string    `json:"role_analysis,omitempty"`   // sub-task "role"
	BuyingSignals  string    `json:"buying_signals,omitempty"`  // sub-task "signals"
	EnrichedAt     time.Time `json:"enriched_at"`
}

// SocialProfile holds researched social presence for a contact, attached by
// a completed social_research job.
type SocialProfile struct {
	LinkedIn     string    `json:"linkedin,omitempty"` // sub-task "linkedin"
	Twitter      string    `json:"twitter,omitempty"`  // sub-task "twitter"
	ResearchedAt time.Time `json:"researched_at"`
}

// Contact represents a CRM contact
type Contact struct {
	ID         string             `json:"id" toml:"id" badgerhold:"key"`
	Name       string             `json:"name" toml:"name"`
	Email      string             `json:"email" toml:"email"`
	Company    string             `json:"company,omitempty" toml:"company"`
	Title      string             `json:"title,omitempty" toml:"title"`
	Phone      string             `json:"phone,omitempty" toml:"phone"`
	Notes      string             `json:"notes,omitempty" toml:"notes"`
	Enrichment *ContactEnrichment `json:"enrichment,omitempty" toml:"-"`
	Social     *SocialProfile     `json:"social,omitempty" toml:"-"`
	CreatedAt  time.Time          `json:"created_at" toml:"-"`
	UpdatedAt  time.Time          `json:"updated_at" toml:"-"`
}

// Validate validates required contact fields
func (c *Contact) Validate() error {
	if c.ID == "" {
		return errRequired("contact ID")
	}
	if c.Name == "" {
		return errRequired("contact name")
	}
	return nil
}
