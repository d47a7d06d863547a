package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
// Transitions only move forward: draft -> sending -> sent|failed.
// Terminal states are re-entered only through an explicit resend.
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
	CampaignFailed  CampaignStatus = "failed"
)

// Campaign represents a single bulk-email send job: one subject and body
// targeted at a recipient set. Status and sent_count are mutated only by the
// dispatch coordinator; opens/clicks counters only by the event reconciler.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	OwnerID     string         `json:"owner_id" db:"owner_id"`
	Subject     string         `json:"subject" db:"subject"`
	FromAddress string         `json:"from_address" db:"from_address"`
	HTMLContent string         `json:"html_content" db:"html_content"`
	Status      CampaignStatus `json:"status" db:"status"`

	// Monotonic counters. sent_count is written once at dispatch completion;
	// opens_count/clicks_count are derived from analytics row cardinality.
	SentCount   int `json:"sent_count" db:"sent_count"`
	OpensCount  int `json:"opens_count" db:"opens_count"`
	ClicksCount int `json:"clicks_count" db:"clicks_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}

// EngagementCounts holds the derived open/click totals for a campaign,
// computed from distinct analytics rows rather than per-event increments so
// webhook redelivery never double-counts.
type EngagementCounts struct {
	Opens  int `json:"opens"`
	Clicks int `json:"clicks"`
}
