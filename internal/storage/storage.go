package storage

import (
	"context"

	"github.com/xaenox/chat-ingest/internal/models"
)

// Store is the relational sink for normalized chat events. WriteEvent is
// the one atomic entry point for the pipeline; every write in it is an
// upsert keyed on message identity, so redelivery is a no-op.
type Store interface {
	// WriteEvent persists a message, its label values and an optional
	// metric in a single transaction. A message row that already exists
	// is left untouched; (message, label value) pairs that already exist
	// are left untouched; the metric, when present, is always appended.
	WriteEvent(ctx context.Context, msg *models.Message, labelValues []string, metric *models.Metric) error

	// AppendMetric inserts a late-arriving metric row outside any event
	// write. Metrics are facts, not identities: duplicates are tolerated.
	AppendMetric(ctx context.Context, metric models.Metric) error

	Close() error

	// Embed AuditReader interface
	AuditReader
}

// AuditReader exposes the committed tables to the consistency auditor.
type AuditReader interface {
	ListMessages(ctx context.Context) ([]models.Message, error)
	ListLabels(ctx context.Context) ([]models.Label, error)
	ListMetrics(ctx context.Context) ([]models.Metric, error)
}
