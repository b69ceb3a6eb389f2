package models

import "time"

// Action is one candidate tool action embedded in an event. An event may
// carry several; the router selects exactly one.
type Action struct {
	Kind string `json:"kind"`
	Step string `json:"step,omitempty"`
}

// Usage carries the token/cost facts reported with an event.
type Usage struct {
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// Event is the raw one-per-chat-turn payload as delivered by the bus.
// It is never persisted as-is; the pipeline normalizes it into a Message
// plus its Label and Metric rows.
type Event struct {
	ObjectID   string    `json:"object_id,omitempty"`
	ResponseID string    `json:"response_id,omitempty"`
	ThreadID   string    `json:"thread_id"`
	RoomID     string    `json:"room_id"`
	Actions    []Action  `json:"actions,omitempty"`
	UserInput  string    `json:"user_input,omitempty"`
	Status     string    `json:"status,omitempty"`
	RequestAt  time.Time `json:"request_at"`
	ResponseAt time.Time `json:"response_at"`
	Usage      *Usage    `json:"usage,omitempty"`
}
