// Package router maps an event's candidate tool actions to exactly one
// routing target. An event may embed several candidate actions; only the
// first one that routes to a real target is kept, the rest are discarded.
// That discarding is deliberate: one tool action per message.
package router

import "github.com/xaenox/chat-ingest/internal/models"

// Action kinds seen in event payloads.
const (
	KindSearch        = "search"
	KindToolExecution = "tool-execution"
	KindProgress      = "progress"
)

// StepEntropy marks steps executed by the Entropy web-automation engine.
// It forces the web-automation target regardless of the action kind, so it
// is checked before any kind branch.
const StepEntropy = "ENTROPY"

// Routing targets recorded on the Message row.
const (
	TargetSearch            = "search"
	TargetWebAutomation     = "web-automation"
	TargetBrowserAutomation = "browser-automation"
	TargetNone              = "none"
)

// Decision is the selected action's classification.
type Decision struct {
	Target   string
	ToolKind string
	StepKind string
}

// RouteAction classifies a single candidate action.
func RouteAction(a models.Action) string {
	if a.Step == StepEntropy {
		return TargetWebAutomation
	}
	switch a.Kind {
	case KindSearch:
		return TargetSearch
	case KindToolExecution:
		return TargetBrowserAutomation
	case KindProgress:
		// Pure reasoning step, no side-effecting action.
		return TargetNone
	default:
		return TargetNone
	}
}

// Route selects the decision for an event: the first candidate in event
// order whose target is not "none" wins. When no candidate routes
// anywhere the sentinel none-decision is returned.
func Route(actions []models.Action) Decision {
	for _, a := range actions {
		if target := RouteAction(a); target != TargetNone {
			return Decision{Target: target, ToolKind: a.Kind, StepKind: a.Step}
		}
	}
	return Decision{Target: TargetNone}
}
