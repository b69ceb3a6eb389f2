// Package pipeline drives one event through identity resolution, tool
// routing, intent classification and the idempotent store write, with
// bounded retries and a dead-letter path for everything that fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/xaenox/chat-ingest/internal/classifier"
	"github.com/xaenox/chat-ingest/internal/identity"
	"github.com/xaenox/chat-ingest/internal/models"
	"github.com/xaenox/chat-ingest/internal/router"
	"github.com/xaenox/chat-ingest/internal/storage"
	"go.uber.org/zap"
)

// Classifier is the adapter contract the driver depends on.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Classification, error)
}

type Config struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type Pipeline struct {
	classifier Classifier
	store      storage.Store
	deadLetter DeadLetterSink
	cfg        Config
	logger     *zap.Logger
}

func New(clf Classifier, store storage.Store, deadLetter DeadLetterSink, cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		classifier: clf,
		store:      store,
		deadLetter: deadLetter,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process normalizes one event. Identity failures go straight to the
// dead-letter sink; classifier and store failures are retried with
// jittered exponential backoff before following them there. A non-nil
// return always means the event was dead-lettered (or the caller's
// context ended).
func (p *Pipeline) Process(ctx context.Context, ev models.Event) error {
	messageID, err := identity.Resolve(ev)
	if err != nil {
		// Structurally unidentifiable: retrying cannot help.
		if pubErr := p.deadLetter.Publish(ctx, ev, err, 0); pubErr != nil {
			p.logger.Error("dead-letter publish failed", zap.Error(pubErr))
		}
		return err
	}

	decision := router.Route(ev.Actions)

	var lastErr error
	delay := p.cfg.RetryBaseDelay
	attempts := 0
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(delay) + 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay + jitter):
			}
			delay *= 2
		}

		attempts++
		lastErr = p.attempt(ctx, ev, messageID, decision)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		p.logger.Warn("event processing attempt failed",
			zap.Error(lastErr),
			zap.String("message_id", messageID),
			zap.Int("attempt", attempts))
	}

	if pubErr := p.deadLetter.Publish(ctx, ev, lastErr, attempts); pubErr != nil {
		p.logger.Error("dead-letter publish failed", zap.Error(pubErr))
	}
	return fmt.Errorf("event %s exhausted %d attempts: %w", messageID, attempts, lastErr)
}

func (p *Pipeline) attempt(ctx context.Context, ev models.Event, messageID string, decision router.Decision) error {
	cls, err := p.classifier.Classify(ctx, ev.UserInput)
	switch {
	case errors.Is(err, classifier.ErrNoInput):
		cls = models.Classification{Primary: classifier.CategoryUnknown}
	case err != nil:
		return err
	}

	// Cancellation is honored up to here. The transaction itself runs to
	// commit or rollback once begun.
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &models.Message{
		ID:              messageID,
		ThreadID:        ev.ThreadID,
		RoomID:          ev.RoomID,
		ToolKind:        decision.ToolKind,
		StepKind:        decision.StepKind,
		RoutingTarget:   decision.Target,
		PrimaryCategory: cls.Primary,
		Status:          ev.Status,
		RequestAt:       ev.RequestAt,
		ResponseAt:      ev.ResponseAt,
	}

	labelValues := make([]string, 0, len(cls.Labels))
	for _, l := range cls.Labels {
		labelValues = append(labelValues, l.Value)
	}

	var metric *models.Metric
	if ev.Usage != nil {
		metric = &models.Metric{
			MessageID:  messageID,
			ThreadID:   ev.ThreadID,
			Tokens:     ev.Usage.Tokens,
			Cost:       ev.Usage.Cost,
			RequestAt:  ev.RequestAt,
			ResponseAt: ev.ResponseAt,
		}
	}

	if err := p.store.WriteEvent(context.WithoutCancel(ctx), msg, labelValues, metric); err != nil {
		return fmt.Errorf("store write for %s: %w", messageID, err)
	}

	p.logger.Debug("event normalized",
		zap.String("message_id", messageID),
		zap.String("routing_target", decision.Target),
		zap.String("primary_category", cls.Primary),
		zap.Int("labels", len(labelValues)))
	return nil
}
