package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/xaenox/chat-ingest/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source yields raw events, at-least-once, in no particular order across
// distinct message identities. Next returns io.EOF when the intake for
// this run is exhausted.
type Source interface {
	Next(ctx context.Context) (models.Event, error)
}

// Pool fans events out to parallel Process calls. There is no ordering
// requirement across distinct message ids; redeliveries of one id are
// serialized by the store's upserts, so workers need no shared state.
type Pool struct {
	pipeline *Pipeline
	workers  int
	logger   *zap.Logger
}

func NewPool(p *Pipeline, workers int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{pipeline: p, workers: workers, logger: logger}
}

// Run consumes the source until EOF or context cancellation. Per-event
// failures do not stop the run: a failed event has already reached the
// dead-letter sink by the time Process returns.
func (p *Pool) Run(ctx context.Context, source Source) error {
	events := make(chan models.Event)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		for {
			ev, err := source.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for ev := range events {
				if err := p.pipeline.Process(ctx, ev); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					p.logger.Warn("event not normalized", zap.Error(err))
				}
			}
			return nil
		})
	}

	return g.Wait()
}
