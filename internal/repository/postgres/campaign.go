// Package postgres implements the dispatch and reconcile repository
// contracts against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/campaign-dispatch/internal/dispatch"
	"github.com/ignite/campaign-dispatch/internal/domain"
)

// Send rows are inserted in slices of this size to keep statements bounded.
const insertBatchSize = 500

// DispatchRepo implements dispatch.Repository.
type DispatchRepo struct{ db *sql.DB }

// NewDispatchRepo creates a Postgres-backed dispatch repository.
func NewDispatchRepo(db *sql.DB) *DispatchRepo { return &DispatchRepo{db: db} }

func (r *DispatchRepo) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, subject, COALESCE(from_address,''), COALESCE(html_content,''),
		       status, sent_count, opens_count, clicks_count, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.OwnerID, &c.Subject, &c.FromAddress, &c.HTMLContent,
		&c.Status, &c.SentCount, &c.OpensCount, &c.ClicksCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, dispatch.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *DispatchRepo) UpdateCampaignStatus(ctx context.Context, id string, status domain.CampaignStatus, sentCount int) error {
	// GREATEST keeps the counter monotonic: a resend can only add to what an
	// earlier attempt reported.
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $2, sent_count = GREATEST(sent_count, $3), updated_at = NOW()
		WHERE id = $1
	`, id, status, sentCount)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dispatch.ErrCampaignNotFound
	}
	return nil
}

func (r *DispatchRepo) BulkInsertCampaignSends(ctx context.Context, rows []domain.CampaignSend) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := r.insertSends(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *DispatchRepo) insertSends(ctx context.Context, rows []domain.CampaignSend) error {
	placeholders := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*6)
	for i, row := range rows {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, row.ID, row.CampaignID, row.ContactID, row.Email, row.Status, row.CreatedAt)
	}

	// A resend reuses existing (campaign, contact) rows: the conflict target
	// resets them to pending instead of duplicating.
	q := `
		INSERT INTO campaign_sends (id, campaign_id, contact_id, email, status, created_at)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (campaign_id, contact_id) DO UPDATE
		SET status = EXCLUDED.status, provider_message_id = NULL, created_at = EXCLUDED.created_at`

	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert campaign sends: %w", err)
	}
	return nil
}

func (r *DispatchRepo) MarkSendsSent(ctx context.Context, campaignID string, contactIDs []string, messageID string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaign_sends
		SET status = $3, provider_message_id = $4, sent_at = COALESCE(sent_at, $5)
		WHERE campaign_id = $1 AND contact_id = ANY($2)
	`, campaignID, pq.Array(contactIDs), domain.SendSent, messageID, sentAt)
	if err != nil {
		return fmt.Errorf("mark sends sent: %w", err)
	}
	return nil
}

func (r *DispatchRepo) MarkSendsFailed(ctx context.Context, campaignID string, contactIDs []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaign_sends
		SET status = $3
		WHERE campaign_id = $1 AND contact_id = ANY($2)
	`, campaignID, pq.Array(contactIDs), domain.SendFailed)
	if err != nil {
		return fmt.Errorf("mark sends failed: %w", err)
	}
	return nil
}
