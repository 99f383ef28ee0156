package orchestrator

import (
	"context"
	"sync"
	"time"

	"watermark-studio/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

// renderFunc produces the preview for the currently active item. It is
// called after the quiet period, never concurrently with itself for the
// same token.
type renderFunc func(ctx context.Context) PreviewResult

// PreviewResult carries the encoded frame together with the output format
// it was encoded in, snapshotted at render time.
type PreviewResult struct {
	ItemID string
	Format domain.OutputFormat
	Data   []byte
	Err    error
}

// Preview coalesces rapid recompute requests: each Request bumps a token and
// restarts the quiet timer, and a completed render is applied only when its
// token is still the newest. Stale in-flight results are discarded on
// arrival, so only the latest request ever becomes visible.
type Preview struct {
	quiet  time.Duration
	render renderFunc
	logger *zlog.Zerolog

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	applied uint64
	latest  *PreviewResult
}

func newPreview(quiet time.Duration, render renderFunc, logger *zlog.Zerolog) *Preview {
	return &Preview{
		quiet:  quiet,
		render: render,
		logger: logger,
	}
}

// Request schedules a recompute after the quiet period, superseding any
// pending or in-flight one.
func (p *Preview) Request() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	token := p.seq

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.quiet, func() {
		p.fire(token)
	})
}

// Invalidate drops the applied result and cancels any pending or in-flight
// recompute. Used when the previewed item no longer exists.
func (p *Preview) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.applied = p.seq
	if p.timer != nil {
		p.timer.Stop()
	}
	p.latest = nil
}

func (p *Preview) fire(token uint64) {
	p.mu.Lock()
	if token != p.seq {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	start := time.Now()
	res := p.render(context.Background())

	p.mu.Lock()
	defer p.mu.Unlock()

	// A newer request arrived while rendering; this result must never show.
	if token != p.seq {
		p.logger.Debug().Uint64("token", token).Msg("Discarding stale preview result")
		return
	}

	p.applied = token
	p.latest = &res

	if res.Err != nil {
		p.logger.Warn().Err(res.Err).Str("item_id", res.ItemID).Msg("Preview recompute failed")
		return
	}
	p.logger.Debug().
		Str("item_id", res.ItemID).
		Int("size", len(res.Data)).
		Dur("duration", time.Since(start)).
		Msg("Preview updated")
}

// Latest returns the newest applied result and whether a fresher request is
// still pending or in flight.
func (p *Preview) Latest() (*PreviewResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending := p.seq != p.applied
	if p.latest == nil {
		return nil, pending
	}
	res := *p.latest
	return &res, pending
}
