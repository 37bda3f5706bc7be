package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightx/upi-insight/internal/chat"
	"github.com/insightx/upi-insight/internal/dataset"
	"github.com/insightx/upi-insight/internal/examples"
	"github.com/insightx/upi-insight/internal/llm"
	"github.com/insightx/upi-insight/internal/pipeline"
	"github.com/insightx/upi-insight/internal/schema"
	"github.com/insightx/upi-insight/internal/sqlgen"
	"github.com/insightx/upi-insight/internal/synthesis"
)

// happyLLM answers every capability with fixed values.
type happyLLM struct{}

func (happyLLM) Classify(_ context.Context, _ string, _ []chat.Turn) (bool, error) {
	return true, nil
}

func (happyLLM) GenerateSQL(_ context.Context, _ llm.GenerateRequest) (string, error) {
	return "SELECT COUNT(*) AS transaction_count FROM transactions", nil
}

func (happyLLM) Synthesize(_ context.Context, _ llm.SynthesizeRequest) (*llm.SynthesisResponse, error) {
	return &llm.SynthesisResponse{
		Answer:    "There are 24,950 transactions.",
		Display:   "kpi",
		Followups: []string{"f1?", "f2?", "f3?"},
	}, nil
}

func (happyLLM) Chat(_ context.Context, _ string, _ []chat.Turn) (string, error) {
	return "Hello!", nil
}

func (happyLLM) Interpret(_ context.Context, _ string, note string) (string, error) {
	return "How much did I pay for groceries?", nil
}

func (happyLLM) Configure(_ llm.Config) error { return nil }

type countExecutor struct{}

func (countExecutor) Execute(_ context.Context, _ string) (*dataset.Result, error) {
	return &dataset.Result{
		Columns: []string{"transaction_count"},
		Rows:    []map[string]any{{"transaction_count": int64(24950)}},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *chat.Store) {
	t.Helper()

	store, err := chat.NewStore(filepath.Join(t.TempDir(), "chat.db"), 60)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	desc := schema.Default()
	service := happyLLM{}
	generator := sqlgen.NewGenerator(service, desc, examples.NewIndex(examples.Library()), 4)
	engine := synthesis.NewEngine(service, desc, 3)
	p := pipeline.New(service, generator, countExecutor{}, engine, store, desc, pipeline.Options{})

	return New(p, store, 50), store
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	return recorder
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"ok"`)
}

func TestAskEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/ask",
		`{"question":"how many transactions?"}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response pipeline.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, "There are 24,950 transactions.", response.Answer)
	assert.Equal(t, "kpi", response.Display)
	assert.NotEmpty(t, response.SessionID)
	assert.Len(t, response.Followups, 3)
}

func TestAskEndpointMissingQuestion(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/ask", `{}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "question is required")
}

func TestAskEndpointInvalidJSON(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/ask", `{not json`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "invalid JSON")
}

func TestVoiceAskEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/voice-ask",
		`{"transcript":"how many transactions"}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response pipeline.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "how many transactions", response.Question)
}

func TestOCRAskEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/ocr-ask",
		`{"ocr_text":"BigBasket invoice Rs 2,300","note":"what did I pay?"}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response pipeline.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "How much did I pay for groceries?", response.Question)
}

func TestOCRAskRequiresText(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/ocr-ask", `{"note":"hm"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSessionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	// Create.
	recorder := doJSON(t, handler, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, recorder.Code)

	var session chat.Session
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)

	// Ask into it.
	recorder = doJSON(t, handler, http.MethodPost, "/api/ask",
		`{"question":"how many transactions?","session_id":"`+session.ID+`"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	// List shows it.
	recorder = doJSON(t, handler, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), session.ID)

	// Messages were persisted.
	recorder = doJSON(t, handler, http.MethodGet, "/api/sessions/"+session.ID+"/messages", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "how many transactions?")

	// Delete removes it.
	recorder = doJSON(t, handler, http.MethodDelete, "/api/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doJSON(t, handler, http.MethodDelete, "/api/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server.Handler(), http.MethodOptions, "/api/ask", "")

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}
