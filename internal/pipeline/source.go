package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/xaenox/chat-ingest/internal/models"
	"go.uber.org/zap"
)

// JSONLinesSource reads one JSON event per line. It stands in for the bus
// consumer in local runs and replays: payloads are identical either way.
// Malformed lines are logged and skipped, as redelivery would only replay
// the same bytes.
type JSONLinesSource struct {
	scanner *bufio.Scanner
	logger  *zap.Logger
}

func NewJSONLinesSource(r io.Reader, logger *zap.Logger) *JSONLinesSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	return &JSONLinesSource{scanner: scanner, logger: logger}
}

func (s *JSONLinesSource) Next(ctx context.Context) (models.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Event{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return models.Event{}, err
			}
			return models.Event{}, io.EOF
		}

		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev models.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			s.logger.Warn("skipping malformed event payload", zap.Error(err))
			continue
		}
		return ev, nil
	}
}
