package models

import "time"

// Message is the durable identity anchor: one row per logical event.
// ID is immutable once written; redelivery of the same logical event
// resolves to the same ID and never creates a second row.
type Message struct {
	ID              string    `json:"message_id"`
	ThreadID        string    `json:"thread_id"`
	RoomID          string    `json:"room_id"`
	ToolKind        string    `json:"tool_kind,omitempty"`
	StepKind        string    `json:"step_kind,omitempty"`
	RoutingTarget   string    `json:"routing_target"`
	PrimaryCategory string    `json:"primary_category"`
	Status          string    `json:"status,omitempty"`
	RequestAt       time.Time `json:"request_at"`
	ResponseAt      time.Time `json:"response_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Label is one secondary classification value attached to a Message.
// (MessageID, Value) pairs are unique; ID is a surrogate key.
type Label struct {
	ID        string `json:"label_id"`
	MessageID string `json:"message_id"`
	Value     string `json:"label_value"`
}

// Metric is an append-only usage fact. MessageID is empty for
// thread-scoped metrics.
type Metric struct {
	ID         string    `json:"metric_id"`
	MessageID  string    `json:"message_id,omitempty"`
	ThreadID   string    `json:"thread_id"`
	Tokens     int64     `json:"tokens"`
	Cost       float64   `json:"cost"`
	RequestAt  time.Time `json:"request_at"`
	ResponseAt time.Time `json:"response_at"`
}

// Latency returns the request/response gap, or zero when either
// timestamp is missing.
func (m Metric) Latency() time.Duration {
	if m.RequestAt.IsZero() || m.ResponseAt.IsZero() {
		return 0
	}
	return m.ResponseAt.Sub(m.RequestAt)
}

// ScoredLabel is one secondary label with its confidence as reported by
// the classification engine.
type ScoredLabel struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Classification is the result of intent analysis over a message's free text.
type Classification struct {
	Primary    string        `json:"primary"`
	Labels     []ScoredLabel `json:"labels"`
	Confidence float64       `json:"confidence"`
}
