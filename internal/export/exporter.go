// Package export delivers encoded batch outputs to the object store. Writes
// are paced with a fixed delay between successive deliverables so a large
// batch does not fire every download at once.
package export

import (
	"bytes"
	"context"
	"time"

	"watermark-studio/internal/storage"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type Deliverable struct {
	Path        string
	Filename    string
	Data        []byte
	ContentType string
}

type Exporter struct {
	store   storage.ObjectStore
	delay   time.Duration
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewExporter(store storage.ObjectStore, delay time.Duration, retries retry.Strategy, logger *zlog.Zerolog) *Exporter {
	return &Exporter{
		store:   store,
		delay:   delay,
		retries: retries,
		logger:  logger,
	}
}

// Deliver writes every deliverable in order. The pacing delay is applied
// between writes, not before the first one. A failed write is logged and the
// remaining deliverables still go out.
func (e *Exporter) Deliver(ctx context.Context, items []Deliverable) error {
	for i, item := range items {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.delay):
			}
		}

		err := retry.Do(func() error {
			return e.store.Put(ctx, item.Path, bytes.NewReader(item.Data), int64(len(item.Data)), item.ContentType)
		}, e.retries)
		if err != nil {
			e.logger.Error().Err(err).Str("path", item.Path).Msg("Failed to deliver output")
			continue
		}

		e.logger.Debug().
			Str("path", item.Path).
			Str("filename", item.Filename).
			Int("size", len(item.Data)).
			Msg("Output delivered")
	}

	return nil
}
