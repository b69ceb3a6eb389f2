// Package identity derives the stable message identity for incoming events.
// The resolved id is what makes every downstream write idempotent, so
// resolution must be deterministic for a given logical event.
package identity

import (
	"errors"
	"fmt"

	"github.com/xaenox/chat-ingest/internal/models"
)

// ErrUnresolved means the event carries none of the identity sources.
// Such events are rejected before classification, not silently dropped.
var ErrUnresolved = errors.New("identity: no usable identity source on event")

// synthSeparator joins thread id and timestamp when no external id exists.
const synthSeparator = ":"

// Resolve returns the message id for an event, first match wins:
//  1. the externally-assigned object id, verbatim
//  2. the response id, verbatim
//  3. thread id + ":" + request timestamp in unix microseconds
func Resolve(ev models.Event) (string, error) {
	if ev.ObjectID != "" {
		return ev.ObjectID, nil
	}
	if ev.ResponseID != "" {
		return ev.ResponseID, nil
	}
	if ev.ThreadID != "" && !ev.RequestAt.IsZero() {
		return fmt.Sprintf("%s%s%d", ev.ThreadID, synthSeparator, ev.RequestAt.UnixMicro()), nil
	}
	return "", ErrUnresolved
}
