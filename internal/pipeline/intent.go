package pipeline

import (
	"context"

	"github.com/insightx/upi-insight/internal/chat"
	"github.com/insightx/upi-insight/internal/llm"
)

// Intent is the routing decision for an incoming question.
type Intent string

const (
	// IntentData routes through SQL generation and execution.
	IntentData Intent = "data"
	// IntentConversational routes to a direct chat reply.
	IntentConversational Intent = "conversational"
)

const degradedClassifierWarning = "Intent classification was unavailable; the question was treated as a data question."

// detectIntent wraps the guardrail call. Classification failures fail
// open to the data path and surface a warning instead of an error, so a
// flaky provider never blocks a real question.
func detectIntent(ctx context.Context, service llm.Service, question string, history []chat.Turn) (Intent, string) {
	needsData, err := service.Classify(ctx, question, history)
	if err != nil {
		return IntentData, degradedClassifierWarning
	}

	if needsData {
		return IntentData, ""
	}

	return IntentConversational, ""
}
