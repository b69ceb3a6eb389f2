package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/chat-ingest/internal/models"
	"github.com/xaenox/chat-ingest/internal/router"
	"github.com/xaenox/chat-ingest/internal/storage"
	"go.uber.org/zap"
)

// fakeReader serves fixed rows, violations included; the real stores
// cannot produce most of these states through their write paths.
type fakeReader struct {
	messages []models.Message
	labels   []models.Label
	metrics  []models.Metric
}

func (f *fakeReader) ListMessages(ctx context.Context) ([]models.Message, error) {
	return f.messages, nil
}

func (f *fakeReader) ListLabels(ctx context.Context) ([]models.Label, error) {
	return f.labels, nil
}

func (f *fakeReader) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	return f.metrics, nil
}

func message(id, toolKind, stepKind, target string) models.Message {
	return models.Message{
		ID:              id,
		ThreadID:        "t1",
		RoomID:          "r1",
		ToolKind:        toolKind,
		StepKind:        stepKind,
		RoutingTarget:   target,
		PrimaryCategory: "shopping",
	}
}

func TestAuditCleanStore(t *testing.T) {
	reader := &fakeReader{
		messages: []models.Message{
			message("evt-1", router.KindSearch, "", router.TargetSearch),
			message("evt-2", "", "", router.TargetNone),
		},
		labels: []models.Label{
			{ID: "l1", MessageID: "evt-1", Value: "food_order"},
			{ID: "l2", MessageID: "evt-1", Value: "delivery"},
		},
		metrics: []models.Metric{
			{ID: "m1", MessageID: "evt-1", ThreadID: "t1", Tokens: 10},
			{ID: "m2", ThreadID: "t1", Tokens: 5}, // thread-scoped, fine
		},
	}

	violations, err := NewAuditor(reader, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestAuditOrphanLabel(t *testing.T) {
	reader := &fakeReader{
		labels: []models.Label{{ID: "l1", MessageID: "ghost", Value: "delivery"}},
	}

	violations, err := NewAuditor(reader, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, KindOrphanLabel, violations[0].Kind)
	assert.Equal(t, "ghost", violations[0].MessageID)
}

func TestAuditDuplicateLabelValues(t *testing.T) {
	reader := &fakeReader{
		messages: []models.Message{message("evt-1", "", "", router.TargetNone)},
		labels: []models.Label{
			{ID: "l1", MessageID: "evt-1", Value: "delivery"},
			{ID: "l2", MessageID: "evt-1", Value: "delivery"},
		},
	}

	violations, err := NewAuditor(reader, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, KindDuplicateLabel, violations[0].Kind)
}

func TestAuditDanglingMetric(t *testing.T) {
	reader := &fakeReader{
		metrics: []models.Metric{{ID: "m1", MessageID: "ghost", ThreadID: "t1"}},
	}

	violations, err := NewAuditor(reader, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, KindDanglingMetric, violations[0].Kind)
}

func TestAuditRoutingMismatch(t *testing.T) {
	// Stored as browser-automation but the entropy step derives
	// web-automation.
	reader := &fakeReader{
		messages: []models.Message{
			message("evt-1", router.KindToolExecution, router.StepEntropy, router.TargetBrowserAutomation),
		},
	}

	violations, err := NewAuditor(reader, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, KindRoutingMismatch, violations[0].Kind)
	assert.Equal(t, "evt-1", violations[0].MessageID)
}

func TestAuditAgainstMemoryStoreEndState(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	msg := message("evt-1", router.KindToolExecution, "click", router.TargetBrowserAutomation)
	msg.RequestAt = time.Unix(1700000000, 0)
	require.NoError(t, store.WriteEvent(ctx, &msg, []string{"food_order"}, &models.Metric{
		MessageID: "evt-1",
		ThreadID:  "t1",
		Tokens:    42,
	}))

	violations, err := NewAuditor(store, zap.NewNop()).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}
