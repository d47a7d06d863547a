package domain

import "time"

// SendStatus enumerates the delivery lifecycle of one (campaign, contact) pair.
type SendStatus string

const (
	SendPending   SendStatus = "pending"
	SendSent      SendStatus = "sent"
	SendDelivered SendStatus = "delivered"
	SendFailed    SendStatus = "failed"
)

// CampaignSend is one row per targeted recipient of a campaign. The provider
// message id, once set, is the join key the event reconciler uses to resolve
// asynchronous provider events back to this row. SES returns one message id
// per bulk call, so rows from the same chunk share it; events that carry a
// recipient address disambiguate within the chunk.
type CampaignSend struct {
	ID                string     `json:"id" db:"id"`
	CampaignID        string     `json:"campaign_id" db:"campaign_id"`
	ContactID         string     `json:"contact_id" db:"contact_id"`
	Email             string     `json:"email" db:"email"`
	Status            SendStatus `json:"status" db:"status"`
	ProviderMessageID *string    `json:"provider_message_id" db:"provider_message_id"`
	SentAt            *time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// CampaignAnalytics is the per-(campaign, contact) engagement record.
// Upserts are set-once: a timestamp, once written, is never regressed or
// overwritten by a later or redelivered event.
type CampaignAnalytics struct {
	CampaignID string     `json:"campaign_id" db:"campaign_id"`
	ContactID  string     `json:"contact_id" db:"contact_id"`
	OpenedAt   *time.Time `json:"opened_at" db:"opened_at"`
	ClickedAt  *time.Time `json:"clicked_at" db:"clicked_at"`
}

// Recipient is the dispatch-time view of a contact: just enough to validate
// and address one email.
type Recipient struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
