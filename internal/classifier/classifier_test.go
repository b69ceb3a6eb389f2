package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/chat-ingest/internal/models"
	"go.uber.org/zap"
)

// fakeEngine returns a canned result or error, optionally after a delay.
type fakeEngine struct {
	result models.Classification
	err    error
	delay  time.Duration
}

func (f *fakeEngine) Classify(ctx context.Context, text string) (models.Classification, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return models.Classification{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.result, f.err
}

func newTestAdapter(engine Engine) *Adapter {
	return NewAdapter(engine, 0.70, 10, 2*time.Second, zap.NewNop())
}

func TestClassifyNoInput(t *testing.T) {
	a := newTestAdapter(&fakeEngine{})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := a.Classify(context.Background(), text)
		assert.ErrorIs(t, err, ErrNoInput, "text %q", text)
	}
}

func TestClassifyThresholdFiltering(t *testing.T) {
	a := newTestAdapter(&fakeEngine{result: models.Classification{
		Primary:    "shopping",
		Confidence: 0.9,
		Labels: []models.ScoredLabel{
			{Value: "food_order", Confidence: 0.71},
			{Value: "delivery", Confidence: 0.65},
		},
	}})

	got, err := a.Classify(context.Background(), "order food")
	require.NoError(t, err)
	require.Len(t, got.Labels, 1)
	assert.Equal(t, "food_order", got.Labels[0].Value)
}

func TestClassifySubThresholdPrimaryBecomesUnknown(t *testing.T) {
	a := newTestAdapter(&fakeEngine{result: models.Classification{
		Primary:    "shopping",
		Confidence: 0.4,
	}})

	got, err := a.Classify(context.Background(), "hmm")
	require.NoError(t, err)
	assert.Equal(t, CategoryUnknown, got.Primary)
}

func TestClassifyEmptyPrimaryBecomesUnknown(t *testing.T) {
	a := newTestAdapter(&fakeEngine{result: models.Classification{Confidence: 0.95}})

	got, err := a.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, CategoryUnknown, got.Primary)
}

func TestClassifyDeduplicatesByValue(t *testing.T) {
	a := newTestAdapter(&fakeEngine{result: models.Classification{
		Primary:    "shopping",
		Confidence: 0.9,
		Labels: []models.ScoredLabel{
			{Value: "delivery", Confidence: 0.75},
			{Value: "delivery", Confidence: 0.91},
			{Value: "delivery", Confidence: 0.80},
		},
	}})

	got, err := a.Classify(context.Background(), "deliver it")
	require.NoError(t, err)
	require.Len(t, got.Labels, 1)
	assert.Equal(t, "delivery", got.Labels[0].Value)
	assert.Equal(t, 0.91, got.Labels[0].Confidence)
}

func TestClassifyLabelCap(t *testing.T) {
	// 15 labels above threshold; the 10 highest-confidence survive.
	labels := make([]models.ScoredLabel, 0, 15)
	for i := 0; i < 15; i++ {
		labels = append(labels, models.ScoredLabel{
			Value:      fmt.Sprintf("label_%02d", i),
			Confidence: 0.71 + float64(i)*0.01,
		})
	}
	a := newTestAdapter(&fakeEngine{result: models.Classification{
		Primary:    "busy",
		Confidence: 0.9,
		Labels:     labels,
	}})

	got, err := a.Classify(context.Background(), "do everything")
	require.NoError(t, err)
	require.Len(t, got.Labels, 10)
	// Lowest confidence dropped first: label_05..label_14 remain.
	for _, l := range got.Labels {
		assert.GreaterOrEqual(t, l.Confidence, 0.71+5*0.01-1e-9, "label %s", l.Value)
	}
}

func TestClassifyEngineErrorIsUnavailable(t *testing.T) {
	a := newTestAdapter(&fakeEngine{err: errors.New("connection refused")})

	_, err := a.Classify(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClassifyTimeout(t *testing.T) {
	engine := &fakeEngine{
		result: models.Classification{Primary: "late", Confidence: 0.9},
		delay:  200 * time.Millisecond,
	}
	a := NewAdapter(engine, 0.70, 10, 20*time.Millisecond, zap.NewNop())

	_, err := a.Classify(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClassifyHonorsCallerCancellation(t *testing.T) {
	engine := &fakeEngine{
		result: models.Classification{Primary: "late", Confidence: 0.9},
		delay:  time.Second,
	}
	a := newTestAdapter(engine)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := a.Classify(ctx, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "food_order", normalizeValue("  Food Order "))
	assert.Equal(t, "delivery", normalizeValue("Delivery"))
	assert.Equal(t, "", normalizeValue("   "))
}
