package pipeline

import (
	"context"
	"sync"

	"github.com/xaenox/chat-ingest/internal/models"
	"go.uber.org/zap"
)

// DeadLetterSink receives events that exhausted their retries or that
// structurally cannot be processed. Every event ends up either in the
// normalized tables or here; nothing is silently dropped.
type DeadLetterSink interface {
	Publish(ctx context.Context, ev models.Event, reason error, attempts int) error
}

// LogSink records dead letters in the process log. The production sink is
// the platform's dead-letter topic; this stands in where none is wired.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, ev models.Event, reason error, attempts int) error {
	s.logger.Error("event dead-lettered",
		zap.Error(reason),
		zap.Int("attempts", attempts),
		zap.String("object_id", ev.ObjectID),
		zap.String("response_id", ev.ResponseID),
		zap.String("thread_id", ev.ThreadID),
		zap.String("room_id", ev.RoomID))
	return nil
}

// DeadLetter is one recorded (event, reason, attempts) tuple.
type DeadLetter struct {
	Event    models.Event
	Reason   error
	Attempts int
}

// MemorySink collects dead letters in memory for tests.
type MemorySink struct {
	mu      sync.Mutex
	letters []DeadLetter
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(ctx context.Context, ev models.Event, reason error, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, DeadLetter{Event: ev, Reason: reason, Attempts: attempts})
	return nil
}

func (s *MemorySink) Letters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	letters := make([]DeadLetter, len(s.letters))
	copy(letters, s.letters)
	return letters
}
