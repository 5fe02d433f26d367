package model

import (
	"strings"
	"time"
)

// LeadStatus represents the lifecycle state of a lead.
type LeadStatus string

const (
	StatusPending       LeadStatus = "PENDING"
	StatusNoEmail       LeadStatus = "NO_EMAIL"
	StatusSentSuccess   LeadStatus = "SENT_SUCCESS"
	StatusEmailFailed   LeadStatus = "EMAIL_FAILED"
	StatusInterested    LeadStatus = "INTERESTED"
	StatusNotInterested LeadStatus = "NOT_INTERESTED"
)

// PriorityTier classifies a lead's sales priority and drives template choice.
type PriorityTier string

const (
	TierHot  PriorityTier = "HOT_LEAD"
	TierWarm PriorityTier = "WARM_LEAD"
	TierCold PriorityTier = "COLD_LEAD"
)

// Lead is a candidate business contact produced by one pipeline run.
type Lead struct {
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	RawWebsite string       `json:"raw_website"`
	RawEmail   string       `json:"raw_email"`
	Email      string       `json:"email,omitempty"`
	Category   string       `json:"category"`
	FinalScore int          `json:"final_score"`
	Tier       PriorityTier `json:"priority_level"`
	Status     LeadStatus   `json:"status"`
}

// DedupKey returns the identity key used to collapse duplicate raw records
// within one run: the lowercase concatenation of name and address.
func (l Lead) DedupKey() string {
	return strings.ToLower(l.Name + l.Address)
}

// HasEmail reports whether the lead carries a resolved contact email.
func (l Lead) HasEmail() bool {
	return l.Email != ""
}

// PersistedLead is the durable subset of a lead, keyed by lowercase email
// for upsert into the store.
type PersistedLead struct {
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Website      string       `json:"website"`
	Category     string       `json:"category"`
	Score        int          `json:"score"`
	Tier         PriorityTier `json:"priority_level"`
	Status       LeadStatus   `json:"status"`
	InterestedAt *time.Time   `json:"interested_at,omitempty"`
	ClickAgent   string       `json:"click_user_agent,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Persisted converts a batch lead to its durable form.
func (l Lead) Persisted() PersistedLead {
	return PersistedLead{
		Email:    strings.ToLower(l.Email),
		Name:     l.Name,
		Address:  l.Address,
		Website:  l.RawWebsite,
		Category: l.Category,
		Score:    l.FinalScore,
		Tier:     l.Tier,
		Status:   l.Status,
	}
}

// RunStatus represents the state of a recorded pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one pipeline invocation: which areas and category were
// requested and how many leads came out.
type Run struct {
	ID        string    `json:"id"`
	Areas     []string  `json:"areas"`
	Category  string    `json:"category"`
	Status    RunStatus `json:"status"`
	LeadCount int       `json:"lead_count"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
