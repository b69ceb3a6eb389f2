// Package classifier turns a message's free text into one primary category
// plus a bounded set of secondary labels. The actual text understanding
// lives behind the Engine interface; the Adapter owns thresholds, dedupe,
// the label cap and the call deadline.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xaenox/chat-ingest/internal/models"
	"go.uber.org/zap"
)

// CategoryUnknown is recorded when no text was present or the engine's
// primary category did not clear the confidence threshold.
const CategoryUnknown = "unknown"

var (
	// ErrNoInput means the event carried no free text. Not a failure:
	// the message is written with the unknown category and zero labels.
	ErrNoInput = errors.New("classifier: no input text available")

	// ErrUnavailable means the engine errored or missed its deadline.
	// Retryable; downstream writes are idempotent.
	ErrUnavailable = errors.New("classifier: engine unavailable")
)

// Engine is the external classification capability: one synchronous call,
// free text in, scored labels out. Implementations do not filter or cap;
// that is the Adapter's job.
type Engine interface {
	Classify(ctx context.Context, text string) (models.Classification, error)
}

// Adapter wraps an Engine with the pipeline-facing contract.
type Adapter struct {
	engine        Engine
	minConfidence float64
	maxLabels     int
	timeout       time.Duration
	logger        *zap.Logger
}

func NewAdapter(engine Engine, minConfidence float64, maxLabels int, timeout time.Duration, logger *zap.Logger) *Adapter {
	return &Adapter{
		engine:        engine,
		minConfidence: minConfidence,
		maxLabels:     maxLabels,
		timeout:       timeout,
		logger:        logger,
	}
}

// Classify runs the engine under the adapter's deadline and normalizes the
// result: sub-threshold labels are dropped, duplicate values collapse to
// their highest-confidence instance, and at most maxLabels survive
// (lowest confidence dropped first). A sub-threshold primary becomes
// CategoryUnknown.
func (a *Adapter) Classify(ctx context.Context, text string) (models.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return models.Classification{}, ErrNoInput
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.engine.Classify(ctx, text)
	if err != nil {
		a.logger.Warn("classification engine call failed", zap.Error(err))
		return models.Classification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := models.Classification{
		Primary:    strings.TrimSpace(raw.Primary),
		Confidence: raw.Confidence,
		Labels:     a.filterLabels(raw.Labels),
	}
	if result.Primary == "" || raw.Confidence < a.minConfidence {
		result.Primary = CategoryUnknown
	}
	return result, nil
}

func (a *Adapter) filterLabels(labels []models.ScoredLabel) []models.ScoredLabel {
	// Dedupe by value, keeping the highest confidence. Engines are known
	// to return near-duplicates.
	best := make(map[string]float64, len(labels))
	for _, l := range labels {
		value := strings.TrimSpace(l.Value)
		if value == "" || l.Confidence < a.minConfidence {
			continue
		}
		if c, ok := best[value]; !ok || l.Confidence > c {
			best[value] = l.Confidence
		}
	}

	kept := make([]models.ScoredLabel, 0, len(best))
	for value, confidence := range best {
		kept = append(kept, models.ScoredLabel{Value: value, Confidence: confidence})
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Confidence != kept[j].Confidence {
			return kept[i].Confidence > kept[j].Confidence
		}
		return kept[i].Value < kept[j].Value
	})

	if len(kept) > a.maxLabels {
		dropped := len(kept) - a.maxLabels
		kept = kept[:a.maxLabels]
		a.logger.Debug("label cap applied", zap.Int("dropped", dropped))
	}
	return kept
}
