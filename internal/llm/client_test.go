package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightx/upi-insight/internal/examples"
)

func TestClientConfigure(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid OpenAI-compatible config",
			config: Config{
				Provider: ProviderOpenAI,
				Model:    "llama-3.3-70b-versatile",
				APIKey:   "test-key",
			},
			wantErr: false,
		},
		{
			name: "valid Anthropic config",
			config: Config{
				Provider: ProviderAnthropic,
				Model:    "claude-3-sonnet-20240229",
				APIKey:   "test-key",
			},
			wantErr: false,
		},
		{
			name: "valid Ollama config without API key",
			config: Config{
				Provider: ProviderOllama,
				Model:    "llama3",
			},
			wantErr: false,
		},
		{
			name:    "missing provider",
			config:  Config{Model: "m", APIKey: "k"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  Config{Provider: ProviderOpenAI, APIKey: "k"},
			wantErr: true,
		},
		{
			name:    "missing API key for OpenAI",
			config:  Config{Provider: ProviderOpenAI, Model: "m"},
			wantErr: true,
		},
		{
			name:    "unsupported provider",
			config:  Config{Provider: "bedrock", Model: "m", APIKey: "k"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClientConfigureGroqDefaultBaseURL(t *testing.T) {
	client, err := NewClient(Config{
		Provider: ProviderOpenAI,
		Model:    "llama-3.3-70b-versatile",
		APIKey:   "test-key",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.groq.com/openai/v1", client.config.BaseURL)
}

// newFakeOpenAI returns a server that answers /chat/completions with the
// given assistant content and captures the last request body.
func newFakeOpenAI(t *testing.T, content string, lastReq *openAIRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		if lastReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		}

		resp := openAIResponse{Choices: []openAIChoice{{Message: message{Role: RoleAssistant, Content: content}}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(Config{
		Provider: ProviderOpenAI,
		Model:    "test-model",
		APIKey:   "test-key",
		BaseURL:  baseURL,
	})
	require.NoError(t, err)

	return client
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		verdict   string
		needsData bool
	}{
		{"YES means data question", "YES", true},
		{"NO means conversational", "NO", false},
		{"lowercase no", "no", false},
		{"mushy answer fails open", "I am not sure", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeOpenAI(t, tt.verdict, nil)
			defer server.Close()

			client := newTestClient(t, server.URL)

			needsData, err := client.Classify(context.Background(), "how many transactions failed?", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.needsData, needsData)
		})
	}
}

func TestGenerateSQLStripsCodeFences(t *testing.T) {
	server := newFakeOpenAI(t, "```sql\nSELECT COUNT(*) FROM transactions\n```", nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	sql, err := client.GenerateSQL(context.Background(), GenerateRequest{
		Question:    "how many transactions are there?",
		SchemaBlock: "Table: transactions",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM transactions", sql)
}

func TestGenerateSQLPromptIncludesSchemaAndExamples(t *testing.T) {
	var captured openAIRequest

	server := newFakeOpenAI(t, "SELECT 1", &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GenerateSQL(context.Background(), GenerateRequest{
		Question:    "count failed transactions",
		SchemaBlock: "Table: transactions\n  - transaction_status (TEXT)",
		Examples: []examples.Pair{
			{Question: "How many rows?", SQL: "SELECT COUNT(*) FROM transactions"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, captured.Messages)

	system := captured.Messages[0].Content
	assert.Contains(t, system, "transaction_status")
	assert.Contains(t, system, "How many rows?")
	assert.Contains(t, system, "SELECT COUNT(*) FROM transactions")
}

func TestGenerateSQLRetryCarriesRejectionReason(t *testing.T) {
	var captured openAIRequest

	server := newFakeOpenAI(t, "SELECT 1", &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GenerateSQL(context.Background(), GenerateRequest{
		Question:        "count rows",
		SchemaBlock:     "Table: transactions",
		RejectionReason: "unknown column: txn_amount",
	})
	require.NoError(t, err)

	userMsg := captured.Messages[len(captured.Messages)-1].Content
	assert.Contains(t, userMsg, "unknown column: txn_amount")
	assert.Contains(t, userMsg, "rejected")
}

func TestSynthesizeParsesStructuredResponse(t *testing.T) {
	payload := `{"answer":"Delhi leads with 1,204 transactions.","display":"bar","x_axis":"sender_state","y_axis":"transaction_count","follow_up_questions":["Which state has the lowest count?"]}`

	var captured openAIRequest

	server := newFakeOpenAI(t, payload, &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Synthesize(context.Background(), SynthesizeRequest{
		Question:    "transactions by state?",
		SQL:         "SELECT sender_state, COUNT(*) AS transaction_count FROM transactions GROUP BY sender_state",
		Columns:     []string{"sender_state", "transaction_count"},
		ResultTable: `[{"sender_state":"Delhi","transaction_count":1204}]`,
		RowCount:    8,
		Followups:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, "bar", resp.Display)
	assert.Equal(t, "sender_state", resp.XAxis)
	assert.Len(t, resp.Followups, 1)

	// JSON mode must be requested for structured synthesis.
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.Contains(t, captured.Messages[0].Content, "Result rows")
}

func TestCompleteOpenAIAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Chat(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestInterpretDefaultsNote(t *testing.T) {
	var captured openAIRequest

	server := newFakeOpenAI(t, "What were my grocery transactions last month?", &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)

	question, err := client.Interpret(context.Background(), "BigBasket invoice Rs 2,300 dated 2024-08-12", "")
	require.NoError(t, err)
	assert.NotEmpty(t, question)

	userMsg := captured.Messages[len(captured.Messages)-1].Content
	assert.Contains(t, userMsg, "BigBasket invoice")
	assert.Contains(t, userMsg, "User note:")
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "SELECT 1", "SELECT 1"},
		{"sql fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  SELECT 1  ", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.input))
		})
	}
}

func TestAnthropicSystemPromptLifted(t *testing.T) {
	var captured anthropicRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := anthropicResponse{Content: []anthropicContent{{Type: "text", Text: "YES"}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: ProviderAnthropic,
		Model:    "claude-3-sonnet-20240229",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), "count transactions", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, captured.System)

	for _, msg := range captured.Messages {
		assert.NotEqual(t, RoleSystem, msg.Role)
	}

	assert.True(t, strings.Contains(captured.System, "YES or NO"))
}
