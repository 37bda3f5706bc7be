package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/insightx/upi-insight/internal/chat"
)

// FallbackService provides rule-based behavior when LLM providers are
// unavailable. Answers are conservative and clearly lower fidelity, but
// the pipeline keeps working.
type FallbackService struct{}

// NewFallbackService creates a new fallback service
func NewFallbackService() *FallbackService {
	return &FallbackService{}
}

// Configure is a no-op for the fallback service
func (f *FallbackService) Configure(_ Config) error {
	return nil
}

var conversationalMarkers = []string{
	"hello", "hi ", "hi!", "hey", "thanks", "thank you", "good morning",
	"good evening", "who are you", "what can you do", "how are you", "help",
}

var dataMarkers = []string{
	"transaction", "amount", "bank", "merchant", "state", "upi", "fraud",
	"fail", "success", "count", "how many", "average", "total", "top",
	"trend", "month", "weekend", "device", "network", "age", "spend",
}

// Classify uses keyword heuristics. Ambiguous messages are treated as
// data questions so a real question is never silently dropped.
func (f *FallbackService) Classify(_ context.Context, question string, _ []chat.Turn) (bool, error) {
	lower := strings.ToLower(strings.TrimSpace(question))

	for _, marker := range dataMarkers {
		if strings.Contains(lower, marker) {
			return true, nil
		}
	}

	for _, marker := range conversationalMarkers {
		if strings.Contains(lower, marker) {
			return false, nil
		}
	}

	return true, nil
}

// GenerateSQL maps common question shapes to template queries.
func (f *FallbackService) GenerateSQL(_ context.Context, req GenerateRequest) (string, error) {
	lower := strings.ToLower(req.Question)

	groupColumn := ""

	for keyword, column := range map[string]string{
		"bank":     "sender_bank",
		"state":    "sender_state",
		"merchant": "merchant_category",
		"type":     "transaction_type",
		"device":   "device_type",
		"network":  "network_type",
		"status":   "transaction_status",
		"age":      "sender_age_group",
		"day":      "day_of_week",
	} {
		if strings.Contains(lower, keyword) {
			groupColumn = column
			break
		}
	}

	metric := "COUNT(*) AS transaction_count"

	switch {
	case strings.Contains(lower, "average") || strings.Contains(lower, "avg"):
		metric = "AVG(amount_inr) AS avg_amount"
	case strings.Contains(lower, "total") || strings.Contains(lower, "sum") || strings.Contains(lower, "spend"):
		metric = "SUM(amount_inr) AS total_amount"
	}

	if groupColumn != "" {
		return fmt.Sprintf(
			"SELECT %s, %s FROM transactions GROUP BY %s ORDER BY 2 DESC",
			groupColumn, metric, groupColumn,
		), nil
	}

	if strings.Contains(lower, "how many") || strings.Contains(lower, "count") ||
		strings.Contains(lower, "average") || strings.Contains(lower, "total") {
		return fmt.Sprintf("SELECT %s FROM transactions", metric), nil
	}

	return "SELECT * FROM transactions LIMIT 10", nil
}

// Synthesize produces a minimal factual summary of the result shape.
func (f *FallbackService) Synthesize(_ context.Context, req SynthesizeRequest) (*SynthesisResponse, error) {
	var answer string

	switch {
	case req.RowCount == 0:
		answer = "The query returned no matching transactions."
	case req.RowCount == 1:
		answer = "The query returned a single result row. See the table for details."
	default:
		answer = fmt.Sprintf("The query returned %d rows. See the table for details.", req.RowCount)

		if req.Truncated {
			answer = fmt.Sprintf(
				"The query returned more than %d rows; showing the first %d. See the table for details.",
				req.RowCount, req.RowCount,
			)
		}
	}

	return &SynthesisResponse{
		Answer:  answer,
		Display: "table",
	}, nil
}

// Chat returns a canned conversational reply.
func (f *FallbackService) Chat(_ context.Context, _ string, _ []chat.Turn) (string, error) {
	return "Hi! I can answer questions about your UPI transaction data, " +
		"like spending by merchant category, failure rates per bank, or monthly trends. " +
		"What would you like to know?", nil
}

// Interpret passes the extracted text through with the note attached.
func (f *FallbackService) Interpret(_ context.Context, ocrText string, note string) (string, error) {
	if note != "" {
		return note, nil
	}

	snippet := strings.TrimSpace(ocrText)
	if len(snippet) > 120 {
		snippet = snippet[:120]
	}

	return fmt.Sprintf("What does the transaction data show related to: %s", snippet), nil
}
