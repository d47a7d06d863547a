package dispatch

import (
	"context"
	"time"

	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/pkg/logger"
)

// ChunkResult captures one provider call's outcome. Exactly one of MessageID
// or Err is set: the provider accepts a chunk atomically or rejects it whole.
type ChunkResult struct {
	Size      int
	MessageID string
	Err       error
}

// ExecutorConfig carries the pacing knobs for chunked sending.
type ExecutorConfig struct {
	// Cooldown is the minimum spacing between consecutive chunk sends.
	Cooldown time.Duration
	// SkipCooldownSingleChunk skips pacing entirely for single-chunk sends.
	SkipCooldownSingleChunk bool
}

// Executor issues one provider call per chunk and enforces the inter-chunk
// cooldown. It performs no persistence; recording outcomes is the
// coordinator's job.
type Executor struct {
	provider Provider
	cfg      ExecutorConfig
	pause    func(ctx context.Context, d time.Duration)
}

// NewExecutor creates an executor over the given provider.
func NewExecutor(provider Provider, cfg ExecutorConfig) *Executor {
	return &Executor{provider: provider, cfg: cfg, pause: sleepPause}
}

func sleepPause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// SendChunk sends one chunk. Provider errors are captured in the result, not
// returned: a failed chunk must never abort processing of later chunks.
func (e *Executor) SendChunk(ctx context.Context, base BulkMessage, chunk []domain.Recipient) ChunkResult {
	msg := base
	msg.To = chunk

	id, err := e.provider.BulkSend(ctx, msg)
	if err != nil {
		logger.Warn("chunk send failed", "campaign_id", base.Tags["campaign_id"], "chunk_size", len(chunk), "error", err)
		return ChunkResult{Size: len(chunk), Err: err}
	}
	return ChunkResult{Size: len(chunk), MessageID: id}
}

// Pace observes the cooldown after chunk i of total. Chunk i+1 may only be
// sent after chunk i completes and after the configured spacing. No pause
// follows the last chunk of a multi-chunk send; a lone chunk pauses only when
// SkipCooldownSingleChunk is off, for deployments that space back-to-back
// dispatches the same way.
func (e *Executor) Pace(ctx context.Context, i, total int) {
	if e.cfg.Cooldown <= 0 {
		return
	}
	if total == 1 {
		if !e.cfg.SkipCooldownSingleChunk {
			e.pause(ctx, e.cfg.Cooldown)
		}
		return
	}
	if i < total-1 {
		e.pause(ctx, e.cfg.Cooldown)
	}
}
