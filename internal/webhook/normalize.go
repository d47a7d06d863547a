package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/campaign-dispatch/internal/domain"
)

// Boundary adapters. Each provider has its own wire format for the same five
// events; everything is normalized to domain.ProviderEvent here so the
// reconciler never depends on any one provider's field names.

// sesEvent is the SES event-publishing JSON (the body SNS wraps in Message).
type sesEvent struct {
	EventType string `json:"eventType"`
	// Older configuration-set destinations emit notificationType instead.
	NotificationType string `json:"notificationType"`
	Mail             struct {
		MessageID   string              `json:"messageId"`
		Timestamp   time.Time           `json:"timestamp"`
		Destination []string            `json:"destination"`
		Tags        map[string][]string `json:"tags"`
	} `json:"mail"`
	Delivery *struct {
		Timestamp  time.Time `json:"timestamp"`
		Recipients []string  `json:"recipients"`
	} `json:"delivery"`
	Open *struct {
		Timestamp time.Time `json:"timestamp"`
	} `json:"open"`
	Click *struct {
		Timestamp time.Time `json:"timestamp"`
		Link      string    `json:"link"`
	} `json:"click"`
	Bounce *struct {
		Timestamp         time.Time `json:"timestamp"`
		BouncedRecipients []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"bouncedRecipients"`
	} `json:"bounce"`
	Complaint *struct {
		Timestamp            time.Time `json:"timestamp"`
		ComplainedRecipients []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"complainedRecipients"`
	} `json:"complaint"`
}

var sesEventTypes = map[string]domain.ProviderEventType{
	"Delivery":  domain.EventDelivery,
	"Open":      domain.EventOpen,
	"Click":     domain.EventClick,
	"Bounce":    domain.EventBounce,
	"Complaint": domain.EventComplaint,
}

// NormalizeSES translates one SES event body into zero or more normalized
// events. Event types outside the reconciler's interest (Send, RenderingFailure,
// DeliveryDelay) yield an empty slice, not an error. Bounce and complaint
// events fan out per affected recipient.
func NormalizeSES(body []byte) ([]domain.ProviderEvent, error) {
	var raw sesEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse ses event: %w", err)
	}

	kind := raw.EventType
	if kind == "" {
		kind = raw.NotificationType
	}
	typ, ok := sesEventTypes[kind]
	if !ok {
		return nil, nil
	}

	base := domain.ProviderEvent{
		Type:       typ,
		MessageID:  raw.Mail.MessageID,
		CampaignID: firstTag(raw.Mail.Tags, "campaign_id", "campaignId"),
		Timestamp:  raw.Mail.Timestamp,
	}

	switch typ {
	case domain.EventDelivery:
		if raw.Delivery == nil {
			return []domain.ProviderEvent{base}, nil
		}
		base.Timestamp = raw.Delivery.Timestamp
		if len(raw.Delivery.Recipients) == 0 {
			return []domain.ProviderEvent{base}, nil
		}
		// A chunk shares one message id, so a delivery listing several
		// recipients must fan out or all but one row stays "sent".
		out := make([]domain.ProviderEvent, 0, len(raw.Delivery.Recipients))
		for _, rcpt := range raw.Delivery.Recipients {
			evt := base
			evt.Email = rcpt
			out = append(out, evt)
		}
		return out, nil

	case domain.EventOpen:
		if raw.Open != nil {
			base.Timestamp = raw.Open.Timestamp
		}
		return []domain.ProviderEvent{base}, nil

	case domain.EventClick:
		if raw.Click != nil {
			base.Timestamp = raw.Click.Timestamp
			base.ClickedURL = raw.Click.Link
		}
		return []domain.ProviderEvent{base}, nil

	case domain.EventBounce:
		if raw.Bounce == nil || len(raw.Bounce.BouncedRecipients) == 0 {
			return []domain.ProviderEvent{base}, nil
		}
		out := make([]domain.ProviderEvent, 0, len(raw.Bounce.BouncedRecipients))
		for _, rcpt := range raw.Bounce.BouncedRecipients {
			evt := base
			evt.Timestamp = raw.Bounce.Timestamp
			evt.Email = rcpt.EmailAddress
			out = append(out, evt)
		}
		return out, nil

	case domain.EventComplaint:
		if raw.Complaint == nil || len(raw.Complaint.ComplainedRecipients) == 0 {
			return []domain.ProviderEvent{base}, nil
		}
		out := make([]domain.ProviderEvent, 0, len(raw.Complaint.ComplainedRecipients))
		for _, rcpt := range raw.Complaint.ComplainedRecipients {
			evt := base
			evt.Timestamp = raw.Complaint.Timestamp
			evt.Email = rcpt.EmailAddress
			out = append(out, evt)
		}
		return out, nil
	}
	return nil, nil
}

func firstTag(tags map[string][]string, names ...string) string {
	for _, name := range names {
		if vals, ok := tags[name]; ok && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// genericEvent is the provider-agnostic wire shape: a type discriminator
// under eventType or type, a message ref under email_id or message_id, and a
// campaign tag either as an object ({"campaign_id": "..."}) or an array of
// {name,value} pairs.
type genericEvent struct {
	EventType  string          `json:"eventType"`
	Type       string          `json:"type"`
	EmailID    string          `json:"email_id"`
	MessageID  string          `json:"message_id"`
	Recipient  string          `json:"recipient"`
	Email      string          `json:"email"`
	ClickedURL string          `json:"clicked_url"`
	URL        string          `json:"url"`
	Timestamp  time.Time       `json:"timestamp"`
	Tags       json.RawMessage `json:"tags"`
}

var genericEventTypes = map[string]domain.ProviderEventType{
	"delivery":  domain.EventDelivery,
	"delivered": domain.EventDelivery,
	"open":      domain.EventOpen,
	"opened":    domain.EventOpen,
	"click":     domain.EventClick,
	"clicked":   domain.EventClick,
	"bounce":    domain.EventBounce,
	"bounced":   domain.EventBounce,
	"complaint": domain.EventComplaint,
}

// NormalizeGeneric translates the generic webhook shape into a normalized
// event. Unknown event types yield (zero value, false).
func NormalizeGeneric(body []byte) (domain.ProviderEvent, bool, error) {
	var raw genericEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.ProviderEvent{}, false, fmt.Errorf("parse event: %w", err)
	}

	kind := raw.EventType
	if kind == "" {
		kind = raw.Type
	}
	typ, ok := genericEventTypes[kind]
	if !ok {
		return domain.ProviderEvent{}, false, nil
	}

	messageID := raw.EmailID
	if messageID == "" {
		messageID = raw.MessageID
	}
	email := raw.Recipient
	if email == "" {
		email = raw.Email
	}
	url := raw.ClickedURL
	if url == "" {
		url = raw.URL
	}

	return domain.ProviderEvent{
		Type:       typ,
		MessageID:  messageID,
		CampaignID: campaignTag(raw.Tags),
		Email:      email,
		ClickedURL: url,
		Timestamp:  raw.Timestamp,
	}, true, nil
}

// campaignTag digs the campaign id out of whichever tag encoding the
// provider uses.
func campaignTag(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		if v := obj["campaign_id"]; v != "" {
			return v
		}
		return obj["campaignId"]
	}

	var pairs []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &pairs); err == nil {
		for _, p := range pairs {
			if p.Name == "campaign_id" || p.Name == "campaignId" {
				return p.Value
			}
		}
	}
	return ""
}
