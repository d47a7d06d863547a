package dispatch

import (
	"context"
	"time"

	"github.com/ignite/campaign-dispatch/internal/domain"
)

// Repository defines the data access contract for the dispatch coordinator.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetCampaign returns a single campaign. Returns ErrCampaignNotFound if
	// it doesn't exist.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// UpdateCampaignStatus transitions a campaign's status and, for terminal
	// transitions, fixes the sent counter.
	UpdateCampaignStatus(ctx context.Context, id string, status domain.CampaignStatus, sentCount int) error

	// BulkInsertCampaignSends inserts one pending send row per targeted
	// recipient. Rows for the same (campaign, contact) pair within one
	// attempt must not be duplicated.
	BulkInsertCampaignSends(ctx context.Context, rows []domain.CampaignSend) error

	// MarkSendsSent stamps the rows for one accepted chunk with the provider
	// message id and sent timestamp.
	MarkSendsSent(ctx context.Context, campaignID string, contactIDs []string, messageID string, sentAt time.Time) error

	// MarkSendsFailed marks the rows for one rejected chunk as failed.
	MarkSendsFailed(ctx context.Context, campaignID string, contactIDs []string) error
}

// BulkMessage is one provider call's worth of mail: shared campaign content
// plus the recipients of a single chunk.
type BulkMessage struct {
	From             string
	To               []domain.Recipient
	Subject          string
	HTML             string
	Text             string
	Tags             map[string]string
	ConfigurationSet string
}

// Provider is the external bulk mail sender. A call is atomic per chunk: the
// provider either accepts the whole chunk and returns one opaque message id,
// or the call fails. Implementations live outside this package (internal/ses)
// so tests can substitute doubles.
type Provider interface {
	BulkSend(ctx context.Context, msg BulkMessage) (messageID string, err error)
}

// Locker guards one campaign against concurrent dispatch across processes.
// The persisted "sending" status is the primary advisory lock; a Locker adds
// a cross-host guard on top of it.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory builds a Locker for the given key. A nil factory disables the
// cross-process guard and relies on the status check alone.
type LockFactory func(key string) Locker
