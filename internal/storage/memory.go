package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/chat-ingest/internal/models"
)

// MemoryStorage is a map-backed Store used by tests and local runs.
// A single mutex around each write gives the same per-key serialization
// the Postgres upserts provide: two concurrent deliveries of one message
// cannot interleave inside WriteEvent.
type MemoryStorage struct {
	mu       sync.RWMutex
	messages map[string]models.Message
	labels   map[string]map[string]models.Label
	metrics  []models.Metric
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages: make(map[string]models.Message),
		labels:   make(map[string]map[string]models.Label),
	}
}

func (s *MemoryStorage) WriteEvent(ctx context.Context, msg *models.Message, labelValues []string, metric *models.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; !exists {
		stored := *msg
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		s.messages[msg.ID] = stored
	}

	byValue, ok := s.labels[msg.ID]
	if !ok {
		byValue = make(map[string]models.Label)
		s.labels[msg.ID] = byValue
	}
	for _, value := range labelValues {
		if _, exists := byValue[value]; exists {
			continue
		}
		byValue[value] = models.Label{
			ID:        uuid.New().String(),
			MessageID: msg.ID,
			Value:     value,
		}
	}

	if metric != nil {
		s.appendMetricLocked(*metric)
	}

	return nil
}

func (s *MemoryStorage) AppendMetric(ctx context.Context, metric models.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendMetricLocked(metric)
	return nil
}

func (s *MemoryStorage) appendMetricLocked(metric models.Metric) {
	if metric.ID == "" {
		metric.ID = uuid.New().String()
	}
	s.metrics = append(s.metrics, metric)
}

func (s *MemoryStorage) ListMessages(ctx context.Context) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]models.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func (s *MemoryStorage) ListLabels(ctx context.Context) ([]models.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var labels []models.Label
	for _, byValue := range s.labels {
		for _, label := range byValue {
			labels = append(labels, label)
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].MessageID != labels[j].MessageID {
			return labels[i].MessageID < labels[j].MessageID
		}
		return labels[i].Value < labels[j].Value
	})
	return labels, nil
}

func (s *MemoryStorage) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]models.Metric, len(s.metrics))
	copy(metrics, s.metrics)
	return metrics, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
