package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/chat-ingest/internal/models"
)

func TestRouteAction(t *testing.T) {
	tests := []struct {
		name   string
		action models.Action
		want   string
	}{
		{"search", models.Action{Kind: KindSearch}, TargetSearch},
		{"search with step", models.Action{Kind: KindSearch, Step: "plan"}, TargetSearch},
		{"tool execution", models.Action{Kind: KindToolExecution, Step: "click"}, TargetBrowserAutomation},
		{"tool execution no step", models.Action{Kind: KindToolExecution}, TargetBrowserAutomation},
		{"tool execution entropy", models.Action{Kind: KindToolExecution, Step: StepEntropy}, TargetWebAutomation},
		{"progress entropy", models.Action{Kind: KindProgress, Step: StepEntropy}, TargetWebAutomation},
		{"progress plain", models.Action{Kind: KindProgress, Step: "thinking"}, TargetNone},
		{"unknown kind", models.Action{Kind: "telemetry"}, TargetNone},
		{"empty action", models.Action{}, TargetNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteAction(tt.action))
		})
	}
}

// The entropy step marker forces web-automation for every action kind,
// including kinds the router has never seen.
func TestEntropyStepAlwaysWinsOverKind(t *testing.T) {
	kinds := []string{KindSearch, KindToolExecution, KindProgress, "telemetry", "made-up", ""}
	for _, kind := range kinds {
		got := RouteAction(models.Action{Kind: kind, Step: StepEntropy})
		assert.Equal(t, TargetWebAutomation, got, "kind %q", kind)
	}
}

func TestRouteFirstCandidateWins(t *testing.T) {
	// The progress+entropy candidate routes first; the search candidate
	// behind it is discarded even though it would route on its own.
	actions := []models.Action{
		{Kind: KindProgress, Step: StepEntropy},
		{Kind: KindSearch},
	}

	d := Route(actions)
	assert.Equal(t, TargetWebAutomation, d.Target)
	assert.Equal(t, KindProgress, d.ToolKind)
	assert.Equal(t, StepEntropy, d.StepKind)
}

func TestRouteSkipsNoneCandidates(t *testing.T) {
	actions := []models.Action{
		{Kind: KindProgress, Step: "thinking"},
		{Kind: "telemetry"},
		{Kind: KindSearch},
	}

	d := Route(actions)
	assert.Equal(t, TargetSearch, d.Target)
	assert.Equal(t, KindSearch, d.ToolKind)
}

func TestRouteNoUsableCandidates(t *testing.T) {
	tests := []struct {
		name    string
		actions []models.Action
	}{
		{"nil list", nil},
		{"empty list", []models.Action{}},
		{"only reasoning", []models.Action{{Kind: KindProgress, Step: "plan"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Route(tt.actions)
			assert.Equal(t, Decision{Target: TargetNone}, d)
		})
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	actions := []models.Action{
		{Kind: KindToolExecution, Step: "click"},
		{Kind: KindSearch},
	}
	first := Route(actions)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Route(actions))
	}
}
