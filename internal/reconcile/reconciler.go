package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/pkg/logger"
)

// Outcome reports what a reconciliation did with an event.
type Outcome string

const (
	// OutcomeApplied means the event updated persisted state (possibly as an
	// idempotent re-apply).
	OutcomeApplied Outcome = "applied"
	// OutcomeDropped means the event referenced no known send record and was
	// discarded without writes.
	OutcomeDropped Outcome = "dropped"
)

// Reconciler resolves provider events to send rows and applies them.
type Reconciler struct {
	repo Repository
}

// NewReconciler creates a reconciler backed by the given repository.
func NewReconciler(repo Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// Reconcile applies one normalized provider event. Unknown message ids yield
// OutcomeDropped with a nil error so the webhook endpoint answers 200 and the
// provider never retries an event we can't resolve. Repository failures are
// returned so queue-based callers can leave the message for redelivery.
func (r *Reconciler) Reconcile(ctx context.Context, evt domain.ProviderEvent) (Outcome, error) {
	if evt.MessageID == "" {
		logger.Warn("event without message id dropped", "type", string(evt.Type))
		return OutcomeDropped, nil
	}

	send, err := r.repo.GetSendByMessageID(ctx, evt.MessageID, evt.Email)
	if errors.Is(err, ErrSendNotFound) {
		logger.Info("send record not found, event dropped", "type", string(evt.Type), "message_id", evt.MessageID)
		return OutcomeDropped, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve send for %s: %w", evt.MessageID, err)
	}

	// The provider echoes back the campaign tag we attach at send time; the
	// send row is authoritative when the tag is missing or disagrees.
	campaignID := send.CampaignID
	if evt.CampaignID != "" && evt.CampaignID != campaignID {
		logger.Warn("campaign tag mismatch, using send row", "tag", evt.CampaignID, "campaign_id", campaignID)
	}

	at := evt.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	switch evt.Type {
	case domain.EventDelivery:
		if err := r.repo.UpdateSendStatus(ctx, send.ID, domain.SendDelivered, &at); err != nil {
			return "", fmt.Errorf("mark delivered: %w", err)
		}

	case domain.EventOpen:
		if err := r.applyEngagement(ctx, campaignID, send.ContactID, &at, nil); err != nil {
			return "", err
		}

	case domain.EventClick:
		if err := r.applyEngagement(ctx, campaignID, send.ContactID, nil, &at); err != nil {
			return "", err
		}
		if evt.ClickedURL != "" {
			logger.Debug("click recorded", "campaign_id", campaignID, "url", evt.ClickedURL)
		}

	case domain.EventBounce, domain.EventComplaint:
		if err := r.repo.UpdateContactStatus(ctx, send.ContactID, domain.ContactBounced); err != nil {
			return "", fmt.Errorf("mark contact bounced: %w", err)
		}
		if err := r.repo.UpdateSendStatus(ctx, send.ID, domain.SendFailed, nil); err != nil {
			return "", fmt.Errorf("mark send failed: %w", err)
		}

	default:
		logger.Warn("unknown event type dropped", "type", string(evt.Type), "message_id", evt.MessageID)
		return OutcomeDropped, nil
	}

	return OutcomeApplied, nil
}

// applyEngagement upserts the analytics row, then recomputes the campaign's
// open/click counters from row cardinality so redelivered events never
// double-count.
func (r *Reconciler) applyEngagement(ctx context.Context, campaignID, contactID string, openedAt, clickedAt *time.Time) error {
	if err := r.repo.UpsertAnalytics(ctx, campaignID, contactID, openedAt, clickedAt); err != nil {
		return fmt.Errorf("upsert analytics: %w", err)
	}
	counts, err := r.repo.CountEngagement(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("count engagement: %w", err)
	}
	if err := r.repo.UpdateCampaignEngagement(ctx, campaignID, counts); err != nil {
		return fmt.Errorf("update engagement counters: %w", err)
	}
	return nil
}
