package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/insightx/upi-insight/internal/chat"
)

// Client implements the Service interface with multiple provider support
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new LLM client with the given configuration
func NewClient(config Config) (*Client, error) {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	if err := client.Configure(config); err != nil {
		return nil, err
	}

	return client, nil
}

// Configure updates the client configuration
func (c *Client) Configure(config Config) error {
	if config.Provider == "" {
		return fmt.Errorf("provider is required")
	}

	if config.Model == "" {
		return fmt.Errorf("model is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return fmt.Errorf("API key is required for OpenAI-compatible provider")
		}

		if config.BaseURL == "" {
			config.BaseURL = "https://api.groq.com/openai/v1"
		}
	case ProviderAnthropic:
		if config.APIKey == "" {
			return fmt.Errorf("API key is required for Anthropic provider")
		}

		if config.BaseURL == "" {
			config.BaseURL = "https://api.anthropic.com/v1"
		}
	case ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("unsupported provider: %s", config.Provider)
	}

	c.config = config

	return nil
}

// Classify runs the intent guardrail: a single cheap call that answers
// YES (needs data) or NO (conversational).
func (c *Client) Classify(ctx context.Context, question string, history []chat.Turn) (bool, error) {
	messages := []message{{Role: RoleSystem, Content: classifyPrompt}}
	messages = appendHistory(messages, history)
	messages = append(messages, message{Role: RoleUser, Content: question})

	raw, err := c.complete(ctx, messages, false, 10)
	if err != nil {
		return false, err
	}

	verdict := strings.ToUpper(strings.TrimSpace(raw))

	// Anything other than an explicit NO is treated as a data question.
	return !strings.HasPrefix(verdict, "NO"), nil
}

// GenerateSQL produces a single SELECT statement for the question.
func (c *Client) GenerateSQL(ctx context.Context, req GenerateRequest) (string, error) {
	messages := []message{{Role: RoleSystem, Content: c.buildSQLPrompt(req)}}
	messages = appendHistory(messages, req.Context)

	userContent := req.Question
	if req.RejectionReason != "" {
		userContent = fmt.Sprintf(
			"%s\n\nYour previous SQL was rejected: %s\nGenerate a corrected query.",
			req.Question, req.RejectionReason,
		)
	}

	messages = append(messages, message{Role: RoleUser, Content: userContent})

	raw, err := c.complete(ctx, messages, false, 600)
	if err != nil {
		return "", err
	}

	return stripCodeFences(raw), nil
}

// Synthesize turns a result table into a grounded answer with display
// hints and follow-up suggestions.
func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesisResponse, error) {
	messages := []message{{Role: RoleSystem, Content: c.buildSynthesisPrompt(req)}}
	messages = appendHistory(messages, req.Context)
	messages = append(messages, message{Role: RoleUser, Content: req.Question})

	raw, err := c.complete(ctx, messages, true, 1200)
	if err != nil {
		return nil, err
	}

	var response SynthesisResponse
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &response); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis JSON: %w", err)
	}

	return &response, nil
}

// Chat answers conversational questions that need no data retrieval.
func (c *Client) Chat(ctx context.Context, question string, history []chat.Turn) (string, error) {
	messages := []message{{Role: RoleSystem, Content: chatPrompt}}
	messages = appendHistory(messages, history)
	messages = append(messages, message{Role: RoleUser, Content: question})

	raw, err := c.complete(ctx, messages, false, 400)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

// Interpret merges OCR-extracted text with the user's note into a single
// self-contained question about the dataset.
func (c *Client) Interpret(ctx context.Context, ocrText string, note string) (string, error) {
	if note == "" {
		note = "Explain what this document shows in the context of UPI transactions."
	}

	userContent := fmt.Sprintf("Extracted document text:\n%s\n\nUser note: %s", ocrText, note)

	messages := []message{
		{Role: RoleSystem, Content: interpretPrompt},
		{Role: RoleUser, Content: userContent},
	}

	raw, err := c.complete(ctx, messages, false, 200)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

const classifyPrompt = `You are a routing guardrail for a UPI transaction analytics assistant.
Decide whether the user's message requires querying the transactions database.

Answer YES if the message asks about transactions, amounts, merchants, banks,
states, failure rates, trends, or anything answerable from transaction data.
Answer NO only for greetings, small talk, questions about the assistant itself,
or requests clearly unrelated to transaction data.

Respond with exactly one word: YES or NO.`

const chatPrompt = `You are a friendly assistant for a UPI transaction analytics tool.
The user's message is conversational and does not need data. Reply briefly and
helpfully, and when natural, remind the user you can answer questions about
their UPI transaction data.`

const interpretPrompt = `You combine text extracted from a document image with a user's note.
Produce ONE clear, self-contained question about UPI transaction data that
captures what the user wants to know. If the document text mentions amounts,
merchants, dates, or banks, carry those details into the question.
Respond with the question only, no preamble.`

// buildSQLPrompt assembles the schema-grounded generation prompt.
func (c *Client) buildSQLPrompt(req GenerateRequest) string {
	var sb strings.Builder

	sb.WriteString(`You are an expert at converting natural language questions into DuckDB SQL.
Generate exactly one SELECT statement over the schema below.

Guidelines:
1. Use proper DuckDB SQL syntax.
2. Only reference tables and columns that exist in the schema.
3. Never generate INSERT, UPDATE, DELETE, DDL, or PRAGMA statements.
4. Use strftime('%Y-%m', timestamp) style expressions for month grouping.
5. Respond with the SQL statement only, no markdown and no explanation.

`)

	sb.WriteString(req.SchemaBlock)

	if len(req.Examples) > 0 {
		sb.WriteString("\nExample questions and their SQL:\n")

		for _, pair := range req.Examples {
			sb.WriteString(fmt.Sprintf("\nQ: %s\nSQL: %s\n", pair.Question, pair.SQL))
		}
	}

	return sb.String()
}

// buildSynthesisPrompt assembles the grounded synthesis prompt.
func (c *Client) buildSynthesisPrompt(req SynthesizeRequest) string {
	var sb strings.Builder

	sb.WriteString(`You are a data analyst explaining UPI transaction query results.
Answer the user's question using ONLY the result rows provided below. Never
invent numbers that are not in the results. Mention concrete values.

Respond with a JSON object containing:
- answer: a concise narrative answer grounded in the result rows
- display: one of "table", "bar", "line", "pie", "kpi", "text"
- x_axis: the result column to use as the x axis (charts only)
- y_axis: the result column to use as the y axis (charts only)
- follow_up_questions: an array of `)
	sb.WriteString(fmt.Sprintf("%d", req.Followups))
	sb.WriteString(` natural follow-up questions answerable from the same dataset

`)

	sb.WriteString(req.SchemaBlock)

	sb.WriteString("\nExecuted SQL:\n")
	sb.WriteString(req.SQL)
	sb.WriteString(fmt.Sprintf("\n\nResult columns: %s\n", strings.Join(req.Columns, ", ")))
	sb.WriteString(fmt.Sprintf("Total rows: %d", req.RowCount))

	if req.Truncated {
		sb.WriteString(" (truncated at the row cap; treat the count as a lower bound)")
	}

	sb.WriteString("\nResult rows (JSON sample):\n")
	sb.WriteString(req.ResultTable)
	sb.WriteString("\n")

	return sb.String()
}

// message is the provider-neutral chat message shape.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func appendHistory(messages []message, history []chat.Turn) []message {
	for _, turn := range history {
		messages = append(messages, message{Role: turn.Role, Content: turn.Content})
	}

	return messages
}

// stripCodeFences removes markdown code fences some models wrap output in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	return strings.TrimSpace(s)
}

// complete dispatches one completion call to the configured provider and
// returns the raw assistant text.
func (c *Client) complete(ctx context.Context, messages []message, jsonMode bool, maxTokens int) (string, error) {
	if c.config.Provider == "" {
		return "", fmt.Errorf("LLM client not configured")
	}

	switch c.config.Provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, messages, jsonMode, maxTokens)
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, messages, maxTokens)
	case ProviderOllama:
		return c.completeOllama(ctx, messages, jsonMode)
	default:
		return "", fmt.Errorf("unsupported provider: %s", c.config.Provider)
	}
}

// OpenAI-compatible API structures (also used by Groq)
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []message             `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message message `json:"message"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) completeOpenAI(ctx context.Context, messages []message, jsonMode bool, maxTokens int) (string, error) {
	reqBody := openAIRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: 0.1,
		MaxTokens:   maxTokens,
	}

	if jsonMode {
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}

	respBody, err := c.post(ctx, c.config.BaseURL+"/chat/completions", reqBody, headers)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse provider response: %w", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("provider API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from provider")
	}

	return response.Choices[0].Message.Content, nil
}

// Anthropic API structures
type anthropicRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) completeAnthropic(ctx context.Context, messages []message, maxTokens int) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.config.Model,
		MaxTokens: maxTokens,
	}

	// Anthropic takes the system prompt as a top-level field.
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			reqBody.System = msg.Content
			continue
		}

		reqBody.Messages = append(reqBody.Messages, msg)
	}

	headers := map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": "2023-06-01",
	}

	respBody, err := c.post(ctx, c.config.BaseURL+"/messages", reqBody, headers)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse Anthropic response: %w", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("Anthropic API error: %s", response.Error.Message)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("no response from Anthropic")
	}

	return response.Content[0].Text, nil
}

// Ollama API structures
type ollamaRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
}

type ollamaResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func (c *Client) completeOllama(ctx context.Context, messages []message, jsonMode bool) (string, error) {
	reqBody := ollamaRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   false,
	}

	if jsonMode {
		reqBody.Format = "json"
	}

	respBody, err := c.post(ctx, c.config.BaseURL+"/api/chat", reqBody, nil)
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	if response.Error != "" {
		return "", fmt.Errorf("Ollama API error: %s", response.Error)
	}

	return response.Message.Content, nil
}

// post makes an HTTP POST with a JSON body and returns the raw response.
func (c *Client) post(ctx context.Context, url string, reqBody interface{}, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
