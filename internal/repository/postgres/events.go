package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/reconcile"
)

// ReconcileRepo implements reconcile.Repository.
type ReconcileRepo struct{ db *sql.DB }

// NewReconcileRepo creates a Postgres-backed reconciliation repository.
func NewReconcileRepo(db *sql.DB) *ReconcileRepo { return &ReconcileRepo{db: db} }

func (r *ReconcileRepo) GetSendByMessageID(ctx context.Context, messageID, email string) (*domain.CampaignSend, error) {
	q := `
		SELECT id, campaign_id, contact_id, email, status, provider_message_id, sent_at, created_at
		FROM campaign_sends
		WHERE provider_message_id = $1`
	args := []interface{}{messageID}
	if email != "" {
		q += ` AND lower(email) = lower($2)`
		args = append(args, email)
	}
	q += ` ORDER BY created_at LIMIT 1`

	s := &domain.CampaignSend{}
	err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&s.ID, &s.CampaignID, &s.ContactID, &s.Email, &s.Status,
		&s.ProviderMessageID, &s.SentAt, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrSendNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get send by message id: %w", err)
	}
	return s, nil
}

func (r *ReconcileRepo) UpdateSendStatus(ctx context.Context, sendID string, status domain.SendStatus, sentAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaign_sends
		SET status = $2, sent_at = COALESCE(sent_at, $3)
		WHERE id = $1
	`, sendID, status, sentAt)
	if err != nil {
		return fmt.Errorf("update send status: %w", err)
	}
	return nil
}

func (r *ReconcileRepo) UpsertAnalytics(ctx context.Context, campaignID, contactID string, openedAt, clickedAt *time.Time) error {
	// Set-once: COALESCE keeps the stored timestamp when one exists, so
	// redelivered or repeat events never move it.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaign_analytics (campaign_id, contact_id, opened_at, clicked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id, contact_id) DO UPDATE
		SET opened_at  = COALESCE(campaign_analytics.opened_at,  EXCLUDED.opened_at),
		    clicked_at = COALESCE(campaign_analytics.clicked_at, EXCLUDED.clicked_at)
	`, campaignID, contactID, openedAt, clickedAt)
	if err != nil {
		return fmt.Errorf("upsert analytics: %w", err)
	}
	return nil
}

func (r *ReconcileRepo) CountEngagement(ctx context.Context, campaignID string) (domain.EngagementCounts, error) {
	var counts domain.EngagementCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(opened_at), COUNT(clicked_at)
		FROM campaign_analytics
		WHERE campaign_id = $1
	`, campaignID).Scan(&counts.Opens, &counts.Clicks)
	if err != nil {
		return counts, fmt.Errorf("count engagement: %w", err)
	}
	return counts, nil
}

func (r *ReconcileRepo) UpdateCampaignEngagement(ctx context.Context, campaignID string, counts domain.EngagementCounts) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET opens_count = GREATEST(opens_count, $2),
		    clicks_count = GREATEST(clicks_count, $3),
		    updated_at = NOW()
		WHERE id = $1
	`, campaignID, counts.Opens, counts.Clicks)
	if err != nil {
		return fmt.Errorf("update campaign engagement: %w", err)
	}
	return nil
}

func (r *ReconcileRepo) UpdateContactStatus(ctx context.Context, contactID string, status domain.ContactStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, contactID, status)
	if err != nil {
		return fmt.Errorf("update contact status: %w", err)
	}
	return nil
}
