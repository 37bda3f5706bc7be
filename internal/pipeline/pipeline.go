package pipeline

import (
	"context"
	"encoding/json"

	"github.com/insightx/upi-insight/internal/chat"
	"github.com/insightx/upi-insight/internal/dataset"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/llm"
	"github.com/insightx/upi-insight/internal/logging"
	"github.com/insightx/upi-insight/internal/schema"
	"github.com/insightx/upi-insight/internal/sqlgen"
	"github.com/insightx/upi-insight/internal/synthesis"
)

// SQLExecutor runs validated queries against the dataset.
type SQLExecutor interface {
	Execute(ctx context.Context, query string) (*dataset.Result, error)
}

// SessionStore persists sessions and their messages.
type SessionStore interface {
	CreateSession(ctx context.Context) (*chat.Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]chat.StoredMessage, error)
	AppendMessage(ctx context.Context, msg chat.StoredMessage) (int64, error)
	MessageCount(ctx context.Context, sessionID string) (int, error)
	AutoTitle(ctx context.Context, sessionID, firstQuestion string) error
}

// Response is the complete answer for one question. Failures surface as
// a friendly Answer plus the Error field; raw provider or database errors
// never reach the caller.
type Response struct {
	SessionID string           `json:"session_id"`
	Question  string           `json:"question"`
	Intent    Intent           `json:"intent"`
	Answer    string           `json:"answer"`
	SQL       string           `json:"sql,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
	Display   string           `json:"display"`
	XAxis     string           `json:"x_axis,omitempty"`
	YAxis     string           `json:"y_axis,omitempty"`
	Followups []string         `json:"follow_up_questions"`
	Warning   string           `json:"warning,omitempty"`
	Error     string           `json:"error,omitempty"`

	// Entry-point echoes: what the voice path transcribed, and what the
	// document path extracted and was originally asked.
	Transcription    string `json:"transcription,omitempty"`
	OCRText          string `json:"ocr_text,omitempty"`
	OriginalQuestion string `json:"original_question,omitempty"`
}

// Pipeline orchestrates intent routing, SQL generation, execution,
// synthesis, and conversation persistence.
type Pipeline struct {
	service       llm.Service
	generator     *sqlgen.Generator
	executor      SQLExecutor
	engine        *synthesis.Engine
	store         SessionStore
	descriptor    *schema.Descriptor
	contextWindow int
	followups     int
	logger        *logging.Logger
}

// Options bundles the pipeline's tunables.
type Options struct {
	ContextWindow int // exchanges of history carried into prompts
	Followups     int // follow-up questions per answer
}

// New creates a pipeline over the given components.
func New(service llm.Service, generator *sqlgen.Generator, executor SQLExecutor,
	engine *synthesis.Engine, store SessionStore, descriptor *schema.Descriptor, opts Options) *Pipeline {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 3
	}

	if opts.Followups <= 0 {
		opts.Followups = 3
	}

	return &Pipeline{
		service:       service,
		generator:     generator,
		executor:      executor,
		engine:        engine,
		store:         store,
		descriptor:    descriptor,
		contextWindow: opts.ContextWindow,
		followups:     opts.Followups,
		logger:        logging.GetLogger(),
	}
}

// Ask answers one question, reading and extending the session history.
func (p *Pipeline) Ask(ctx context.Context, sessionID, question string) *Response {
	sessionID, history := p.prepareSession(ctx, sessionID)

	response := p.answer(ctx, sessionID, question, history)

	p.persistExchange(ctx, response)

	return response
}

// VoiceAsk answers a question transcribed from speech. Transcription
// happens upstream; the pipeline receives plain text.
func (p *Pipeline) VoiceAsk(ctx context.Context, sessionID, transcript string) *Response {
	response := p.Ask(ctx, sessionID, transcript)
	response.Transcription = transcript

	return response
}

// OCRAsk merges text extracted from a document image with the user's
// note into a single question, then answers it. The response keeps the
// interpreted question so clients can show what was actually asked.
func (p *Pipeline) OCRAsk(ctx context.Context, sessionID, ocrText, note string) *Response {
	question, err := p.service.Interpret(ctx, ocrText, note)
	if err != nil || question == "" {
		p.logger.WithError(err).Warn("Document interpretation failed, using note directly")

		question = note
		if question == "" {
			question = "What does this document show about my transactions?"
		}
	}

	response := p.Ask(ctx, sessionID, question)
	response.OCRText = ocrText
	response.OriginalQuestion = note

	return response
}

// answer runs the routing and the chosen path without touching storage.
func (p *Pipeline) answer(ctx context.Context, sessionID, question string, history []chat.Turn) *Response {
	response := &Response{
		SessionID: sessionID,
		Question:  question,
		Display:   synthesis.DisplayText,
	}

	intent, warning := detectIntent(ctx, p.service, question, history)
	response.Intent = intent
	response.Warning = warning

	if intent == IntentConversational {
		p.answerConversational(ctx, response, question, history)
		return response
	}

	p.answerData(ctx, response, question, history)

	return response
}

func (p *Pipeline) answerConversational(ctx context.Context, response *Response, question string, history []chat.Turn) {
	reply, err := p.service.Chat(ctx, question, history)
	if err != nil {
		p.fail(response, err, "I could not reply right now. Please try again.")
		return
	}

	response.Answer = reply
	response.Followups = synthesis.NormalizeFollowups(nil,
		append(chat.UserQuestions(history), question), nil, p.descriptor, p.followups)
}

func (p *Pipeline) answerData(ctx context.Context, response *Response, question string, history []chat.Turn) {
	sql, err := p.generator.Generate(ctx, question, history)
	if err != nil {
		p.fail(response, err,
			"I could not turn that question into a query. Try rephrasing it using fields from the transaction data.")
		return
	}

	response.SQL = sql

	result, err := p.executor.Execute(ctx, sql)
	if err != nil {
		p.fail(response, err,
			"The query could not be executed against the dataset. Try a simpler question.")
		return
	}

	response.Columns = result.Columns
	response.Rows = result.Rows
	response.Truncated = result.Truncated

	insight, err := p.engine.Synthesize(ctx, question, sql, result, history)
	if err != nil {
		p.fail(response, err,
			"The results came back but I could not summarize them. The raw rows are included.")

		response.Display = synthesis.DisplayTable

		return
	}

	response.Answer = insight.Answer
	response.Display = insight.Display
	response.XAxis = insight.XAxis
	response.YAxis = insight.YAxis
	response.Followups = insight.Followups
}

// fail converts an internal error into a friendly response. The error
// type travels in the Error field; the detail stays in the logs.
func (p *Pipeline) fail(response *Response, err error, friendly string) {
	p.logger.ErrorWithErr("Pipeline stage failed", err)

	response.Answer = friendly
	response.Error = string(apperrors.GetType(err))

	if appErr, ok := err.(*apperrors.Error); ok && len(appErr.Suggestions) > 0 {
		response.Answer = friendly + " " + appErr.Suggestions[0] + "."
	}

	if response.Followups == nil {
		response.Followups = synthesis.NormalizeFollowups(nil,
			[]string{response.Question}, nil, p.descriptor, p.followups)
	}
}

// prepareSession resolves the session and loads its folded history.
// Storage failures degrade to a stateless exchange.
func (p *Pipeline) prepareSession(ctx context.Context, sessionID string) (string, []chat.Turn) {
	if p.store == nil {
		return sessionID, nil
	}

	if sessionID == "" {
		session, err := p.store.CreateSession(ctx)
		if err != nil {
			p.logger.WithError(err).Warn("Session creation failed, continuing without history")
			return "", nil
		}

		return session.ID, nil
	}

	messages, err := p.store.GetMessages(ctx, sessionID)
	if err != nil {
		p.logger.WithError(err).Warn("History load failed, continuing without history")
		return sessionID, nil
	}

	turns := make([]chat.Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, chat.Turn{Role: msg.Role, Content: msg.Content})
	}

	return sessionID, chat.Fold(turns, p.contextWindow)
}

// persistExchange appends both turns and titles new sessions. All
// failures are logged and swallowed: answering beats remembering.
func (p *Pipeline) persistExchange(ctx context.Context, response *Response) {
	if p.store == nil || response.SessionID == "" {
		return
	}

	// A failed count must not look like an empty session, or a transient
	// storage error would retitle an established conversation.
	countBefore, countErr := p.store.MessageCount(ctx, response.SessionID)
	if countErr != nil {
		p.logger.WithError(countErr).Warn("Message count failed")
	}

	if _, err := p.store.AppendMessage(ctx, chat.StoredMessage{
		SessionID: response.SessionID,
		Role:      "user",
		Content:   response.Question,
	}); err != nil {
		p.logger.WithError(err).Warn("Failed to persist user message")
		return
	}

	dataJSON, err := json.Marshal(response)
	if err != nil {
		dataJSON = nil
	}

	if _, err := p.store.AppendMessage(ctx, chat.StoredMessage{
		SessionID: response.SessionID,
		Role:      "assistant",
		Content:   response.Answer,
		SQLText:   response.SQL,
		DataJSON:  string(dataJSON),
	}); err != nil {
		p.logger.WithError(err).Warn("Failed to persist assistant message")
	}

	if countErr == nil && countBefore == 0 {
		if err := p.store.AutoTitle(ctx, response.SessionID, response.Question); err != nil {
			p.logger.WithError(err).Warn("Failed to title session")
		}
	}
}
