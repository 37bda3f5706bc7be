package llm

import (
	"context"

	"github.com/insightx/upi-insight/internal/chat"
	"github.com/insightx/upi-insight/internal/examples"
)

// Service defines the interface for LLM operations
type Service interface {
	// Classify decides whether a question needs data retrieval (true) or a
	// conversational reply (false).
	Classify(ctx context.Context, question string, history []chat.Turn) (bool, error)

	// GenerateSQL produces a single read-only SQL statement for the question.
	GenerateSQL(ctx context.Context, req GenerateRequest) (string, error)

	// Synthesize turns query results into a grounded narrative answer with
	// presentation hints and follow-up questions.
	Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesisResponse, error)

	// Chat answers a conversational (non-data) question.
	Chat(ctx context.Context, question string, history []chat.Turn) (string, error)

	// Interpret merges extracted OCR text with the user's note into one
	// self-contained question.
	Interpret(ctx context.Context, ocrText string, note string) (string, error)

	Configure(config Config) error
}

// Config represents LLM service configuration
type Config struct {
	Provider string `json:"provider"` // openai, anthropic, ollama
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// GenerateRequest carries everything the SQL generation prompt needs.
type GenerateRequest struct {
	Question        string
	SchemaBlock     string
	Examples        []examples.Pair
	Context         []chat.Turn
	RejectionReason string // set on a retry after local validation failed
}

// SynthesizeRequest carries the question, the executed SQL, and the
// serialized result table for grounded synthesis.
type SynthesizeRequest struct {
	Question    string
	SQL         string
	Columns     []string
	ResultTable string // JSON-serialized sample of result rows
	RowCount    int
	Truncated   bool
	SchemaBlock string
	Context     []chat.Turn
	Followups   int
}

// SynthesisResponse is the structured synthesis output.
type SynthesisResponse struct {
	Answer    string   `json:"answer"`
	Display   string   `json:"display"`
	XAxis     string   `json:"x_axis,omitempty"`
	YAxis     string   `json:"y_axis,omitempty"`
	Followups []string `json:"follow_up_questions"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Role constants for chat turns sent to providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
