package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/pkg/logger"
)

// DispatchRequest carries one campaign send attempt: the campaign's content
// plus the recipient set resolved by the caller.
type DispatchRequest struct {
	CampaignID  string             `json:"campaign_id"`
	Recipients  []domain.Recipient `json:"recipients"`
	Subject     string             `json:"subject"`
	HTMLContent string             `json:"html_content"`
	FromAddress string             `json:"from_address"`
	CampaignTag string             `json:"campaign_tag"`
}

// DispatchResult reports the aggregate outcome. Success and failure counts
// are always both present: partial success is possible and a single boolean
// cannot express it.
type DispatchResult struct {
	Success           bool               `json:"success"`
	TotalRecipients   int                `json:"total_recipients"`
	SuccessfulSends   int                `json:"successful_sends"`
	FailedSends       int                `json:"failed_sends"`
	InvalidRecipients []InvalidRecipient `json:"invalid_recipients,omitempty"`
	Warning           string             `json:"warning,omitempty"`
}

// Coordinator orchestrates validator -> planner -> executor across all chunks
// of one campaign and owns every persistence write of the attempt. It is
// stateless between invocations; all state lives in the repository.
type Coordinator struct {
	repo     Repository
	exec     *Executor
	maxBatch int
	locks    LockFactory
}

// NewCoordinator creates a dispatch coordinator. maxBatch <= 0 falls back to
// the SES ceiling. locks may be nil; the persisted "sending" status is the
// primary double-dispatch guard either way.
func NewCoordinator(repo Repository, exec *Executor, maxBatch int, locks LockFactory) *Coordinator {
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	return &Coordinator{repo: repo, exec: exec, maxBatch: maxBatch, locks: locks}
}

// Dispatch runs the full pipeline for a campaign that has not been sent yet.
// A campaign already in "sending" is rejected with ErrDispatchInFlight;
// terminal campaigns are rejected with ErrAlreadyDispatched and must go
// through Resend.
func (c *Coordinator) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	campaign, err := c.repo.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == domain.CampaignSending {
		return nil, ErrDispatchInFlight
	}
	if campaign.IsTerminal() {
		return nil, fmt.Errorf("campaign %s already %s: %w", campaign.ID, campaign.Status, ErrAlreadyDispatched)
	}
	return c.run(ctx, req)
}

// Resend re-runs the full pipeline for a campaign in a terminal state. This
// is the only way back out of "sent" or "failed".
func (c *Coordinator) Resend(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	campaign, err := c.repo.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == domain.CampaignSending {
		return nil, ErrDispatchInFlight
	}
	if !campaign.IsTerminal() {
		return nil, ErrNotResendable
	}
	return c.run(ctx, req)
}

func (c *Coordinator) run(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	if c.locks != nil {
		lock := c.locks("dispatch:" + req.CampaignID)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("dispatch lock unavailable, relying on status guard", "campaign_id", req.CampaignID, "error", err)
		} else if !ok {
			return nil, ErrDispatchInFlight
		} else {
			defer lock.Release(context.WithoutCancel(ctx))
		}
	}

	result := &DispatchResult{TotalRecipients: len(req.Recipients)}

	// Persist "sending" before any provider call so a crash mid-send leaves
	// visible evidence of the in-flight attempt.
	if err := c.repo.UpdateCampaignStatus(ctx, req.CampaignID, domain.CampaignSending, 0); err != nil {
		return nil, fmt.Errorf("transition to sending: %w", err)
	}

	valid, invalid := ValidateRecipients(req.Recipients)
	result.InvalidRecipients = invalid

	if len(valid) == 0 {
		if err := c.repo.UpdateCampaignStatus(ctx, req.CampaignID, domain.CampaignFailed, 0); err != nil {
			logger.Error("persistence failure on empty-recipient abort", "campaign_id", req.CampaignID, "error", err)
		}
		return result, ErrNoValidRecipients
	}

	rows := make([]domain.CampaignSend, 0, len(valid))
	now := time.Now().UTC()
	for _, r := range valid {
		rows = append(rows, domain.CampaignSend{
			ID:         uuid.New().String(),
			CampaignID: req.CampaignID,
			ContactID:  r.ID,
			Email:      r.Email,
			Status:     domain.SendPending,
			CreatedAt:  now,
		})
	}
	if err := c.repo.BulkInsertCampaignSends(ctx, rows); err != nil {
		if stErr := c.repo.UpdateCampaignStatus(ctx, req.CampaignID, domain.CampaignFailed, 0); stErr != nil {
			logger.Error("rollback to failed did not persist", "campaign_id", req.CampaignID, "error", stErr)
		}
		result.FailedSends = len(valid)
		return result, fmt.Errorf("insert send rows: %w", err)
	}

	base := BulkMessage{
		From:    req.FromAddress,
		Subject: req.Subject,
		HTML:    req.HTMLContent,
		Tags:    map[string]string{"campaign_id": req.CampaignTag},
	}

	// Once the chunk loop begins, the attempt runs to completion: a caller
	// disconnect or timeout must not turn the remaining chunks into provider
	// failures. Provider calls and row updates get a detached context; only
	// the pacing wait still observes the caller's.
	sendCtx := context.WithoutCancel(ctx)

	chunks := PlanChunks(valid, c.maxBatch)
	for i, chunk := range chunks {
		res := c.exec.SendChunk(sendCtx, base, chunk)
		if res.Err != nil {
			result.FailedSends += res.Size
			if err := c.repo.MarkSendsFailed(sendCtx, req.CampaignID, contactIDs(chunk)); err != nil {
				logger.Error("persistence failure marking chunk failed", "campaign_id", req.CampaignID, "chunk", i, "error", err)
				result.Warning = appendWarning(result.Warning, (&PersistenceError{Op: "mark chunk failed", Err: err}).Error())
			}
		} else {
			result.SuccessfulSends += res.Size
			if err := c.repo.MarkSendsSent(sendCtx, req.CampaignID, contactIDs(chunk), res.MessageID, time.Now().UTC()); err != nil {
				// The provider accepted this chunk; the send happened even
				// though our rows say otherwise. Highest-severity path.
				logger.Error("persistence failure after accepted chunk", "campaign_id", req.CampaignID, "chunk", i, "message_id", res.MessageID, "error", err)
				result.Warning = appendWarning(result.Warning, (&PersistenceError{Op: "mark chunk sent", Err: err}).Error())
			}
		}
		c.exec.Pace(ctx, i, len(chunks))
	}

	// Partial success is success: any accepted recipient means "sent", since
	// resending them is worse than under-reporting.
	status := domain.CampaignSent
	if result.SuccessfulSends == 0 {
		status = domain.CampaignFailed
	}
	if err := c.repo.UpdateCampaignStatus(sendCtx, req.CampaignID, status, result.SuccessfulSends); err != nil {
		logger.Error("persistence failure writing terminal status", "campaign_id", req.CampaignID, "status", string(status), "error", err)
		result.Warning = appendWarning(result.Warning, (&PersistenceError{Op: "terminal status update", Err: err}).Error())
	}

	result.Success = result.SuccessfulSends > 0
	logger.Info("dispatch complete",
		"campaign_id", req.CampaignID,
		"status", string(status),
		"total", result.TotalRecipients,
		"sent", result.SuccessfulSends,
		"failed", result.FailedSends,
		"invalid", len(result.InvalidRecipients),
	)
	return result, nil
}

func contactIDs(chunk []domain.Recipient) []string {
	ids := make([]string, len(chunk))
	for i, r := range chunk {
		ids[i] = r.ID
	}
	return ids
}

func appendWarning(existing, add string) string {
	if existing == "" {
		return add
	}
	return existing + "; " + add
}
