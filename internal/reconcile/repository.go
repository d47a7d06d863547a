package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/campaign-dispatch/internal/domain"
)

// ErrSendNotFound means no send row matches a provider message id. Webhooks
// are fire-and-forget from the provider's side, so this is an expected
// outcome, not a failure.
var ErrSendNotFound = errors.New("send record not found")

// Repository defines the data access contract for event reconciliation.
// Implementations must be safe for concurrent use; events for different
// message ids are processed concurrently.
type Repository interface {
	// GetSendByMessageID resolves a send row by provider message id. SES
	// issues one message id per bulk call, so rows from the same chunk share
	// it; when email is non-empty it disambiguates within the chunk.
	// Returns ErrSendNotFound when nothing matches.
	GetSendByMessageID(ctx context.Context, messageID, email string) (*domain.CampaignSend, error)

	// UpdateSendStatus sets a send row's delivery status. A non-nil sentAt
	// only fills a null sent_at; an already-set timestamp is kept.
	UpdateSendStatus(ctx context.Context, sendID string, status domain.SendStatus, sentAt *time.Time) error

	// UpsertAnalytics records engagement set-once: a non-nil openedAt or
	// clickedAt is written only where the stored value is still null, and
	// re-delivery never creates a duplicate row.
	UpsertAnalytics(ctx context.Context, campaignID, contactID string, openedAt, clickedAt *time.Time) error

	// CountEngagement returns the number of analytics rows with opened_at
	// and clicked_at set for a campaign.
	CountEngagement(ctx context.Context, campaignID string) (domain.EngagementCounts, error)

	// UpdateCampaignEngagement writes the derived counters onto the campaign.
	UpdateCampaignEngagement(ctx context.Context, campaignID string, counts domain.EngagementCounts) error

	// UpdateContactStatus transitions a contact's status (bounce/complaint
	// side effect).
	UpdateContactStatus(ctx context.Context, contactID string, status domain.ContactStatus) error
}
