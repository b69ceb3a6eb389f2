// Package audit reconciles committed rows against the pipeline's
// invariants. It runs beside the pipeline, reads only, and reports
// violations without ever blocking or repairing anything.
package audit

import (
	"context"
	"fmt"

	"github.com/xaenox/chat-ingest/internal/models"
	"github.com/xaenox/chat-ingest/internal/router"
	"github.com/xaenox/chat-ingest/internal/storage"
	"go.uber.org/zap"
)

// Violation kinds.
const (
	KindOrphanLabel     = "orphan_label"
	KindDanglingMetric  = "dangling_metric"
	KindRoutingMismatch = "routing_mismatch"
	KindDuplicateLabel  = "duplicate_label"
)

// Violation is one detected inconsistency.
type Violation struct {
	Kind      string
	MessageID string
	Detail    string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s message=%s: %s", v.Kind, v.MessageID, v.Detail)
}

type Auditor struct {
	reader storage.AuditReader
	logger *zap.Logger
}

func NewAuditor(reader storage.AuditReader, logger *zap.Logger) *Auditor {
	return &Auditor{reader: reader, logger: logger}
}

// Run scans the committed tables once and returns every violation found.
// Checks: labels must reference an existing message and carry no duplicate
// values per message; metrics with a message id must reference an existing
// message; the stored routing target must match what the router derives
// from the stored (tool kind, step kind).
func (a *Auditor) Run(ctx context.Context) ([]Violation, error) {
	messages, err := a.reader.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: list messages: %w", err)
	}
	labels, err := a.reader.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: list labels: %w", err)
	}
	metrics, err := a.reader.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: list metrics: %w", err)
	}

	byID := make(map[string]models.Message, len(messages))
	for _, msg := range messages {
		byID[msg.ID] = msg
	}

	var violations []Violation

	seen := make(map[string]map[string]bool)
	for _, label := range labels {
		if _, ok := byID[label.MessageID]; !ok {
			violations = append(violations, Violation{
				Kind:      KindOrphanLabel,
				MessageID: label.MessageID,
				Detail:    fmt.Sprintf("label %q references no message", label.Value),
			})
		}
		values := seen[label.MessageID]
		if values == nil {
			values = make(map[string]bool)
			seen[label.MessageID] = values
		}
		if values[label.Value] {
			violations = append(violations, Violation{
				Kind:      KindDuplicateLabel,
				MessageID: label.MessageID,
				Detail:    fmt.Sprintf("label %q stored more than once", label.Value),
			})
		}
		values[label.Value] = true
	}

	for _, metric := range metrics {
		if metric.MessageID == "" {
			continue // thread-scoped
		}
		if _, ok := byID[metric.MessageID]; !ok {
			violations = append(violations, Violation{
				Kind:      KindDanglingMetric,
				MessageID: metric.MessageID,
				Detail:    fmt.Sprintf("metric %s references no message", metric.ID),
			})
		}
	}

	for _, msg := range messages {
		expected := router.RouteAction(models.Action{Kind: msg.ToolKind, Step: msg.StepKind})
		if msg.RoutingTarget != expected {
			violations = append(violations, Violation{
				Kind:      KindRoutingMismatch,
				MessageID: msg.ID,
				Detail: fmt.Sprintf("stored target %q, derived %q from (%s, %s)",
					msg.RoutingTarget, expected, msg.ToolKind, msg.StepKind),
			})
		}
	}

	for _, v := range violations {
		a.logger.Warn("audit violation",
			zap.String("kind", v.Kind),
			zap.String("message_id", v.MessageID),
			zap.String("detail", v.Detail))
	}

	return violations, nil
}
