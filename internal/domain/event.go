package domain

import "time"

// ProviderEventType enumerates the asynchronous events a mail provider
// reports after a send is accepted.
type ProviderEventType string

const (
	EventDelivery  ProviderEventType = "delivery"
	EventOpen      ProviderEventType = "open"
	EventClick     ProviderEventType = "click"
	EventBounce    ProviderEventType = "bounce"
	EventComplaint ProviderEventType = "complaint"
)

// ProviderEvent is the normalized inbound event shape. Boundary adapters in
// internal/webhook translate each provider's wire format into this struct;
// the reconciler never sees raw provider JSON.
type ProviderEvent struct {
	Type       ProviderEventType `json:"type"`
	MessageID  string            `json:"message_id"`
	CampaignID string            `json:"campaign_id,omitempty"`
	Email      string            `json:"email,omitempty"`
	ClickedURL string            `json:"clicked_url,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
