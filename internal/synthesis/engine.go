package synthesis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/insightx/upi-insight/internal/chat"
	"github.com/insightx/upi-insight/internal/dataset"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/llm"
	"github.com/insightx/upi-insight/internal/logging"
	"github.com/insightx/upi-insight/internal/schema"
)

// sampleRows bounds how many result rows are serialized into the
// synthesis prompt. Larger results are summarized from this sample plus
// the total row count.
const sampleRows = 50

// Insight is the final grounded answer for a data question.
type Insight struct {
	Answer    string   `json:"answer"`
	Display   string   `json:"display"`
	XAxis     string   `json:"x_axis,omitempty"`
	YAxis     string   `json:"y_axis,omitempty"`
	Followups []string `json:"follow_up_questions"`
}

// Engine turns query results into grounded insights. Model output is
// post-validated: display hints and axis claims that do not resolve
// against the actual result are replaced deterministically, and
// follow-ups are deduplicated against the conversation.
type Engine struct {
	service    llm.Service
	descriptor *schema.Descriptor
	followups  int
}

// NewEngine creates a synthesis engine.
func NewEngine(service llm.Service, descriptor *schema.Descriptor, followups int) *Engine {
	if followups <= 0 {
		followups = 3
	}

	return &Engine{
		service:    service,
		descriptor: descriptor,
		followups:  followups,
	}
}

// Synthesize produces the insight for an executed query.
func (e *Engine) Synthesize(ctx context.Context, question, sql string, result *dataset.Result, history []chat.Turn) (*Insight, error) {
	sample := result.Rows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}

	table, err := json.Marshal(sample)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeInternal, "failed to serialize result sample")
	}

	response, err := e.service.Synthesize(ctx, llm.SynthesizeRequest{
		Question:    question,
		SQL:         sql,
		Columns:     result.Columns,
		ResultTable: string(table),
		RowCount:    result.RowCount(),
		Truncated:   result.Truncated,
		SchemaBlock: e.descriptor.PromptBlock(),
		Context:     history,
		Followups:   e.followups,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeServiceUnavailable, "synthesis failed")
	}

	insight := &Insight{Answer: strings.TrimSpace(response.Answer)}
	if insight.Answer == "" {
		insight.Answer = "See the results below."
	}

	e.applyDisplay(insight, response, question, result)

	asked := append(chat.UserQuestions(history), question)
	insight.Followups = NormalizeFollowups(response.Followups, asked, result.Columns, e.descriptor, e.followups)

	return insight, nil
}

// applyDisplay keeps the model's presentation hint only when it is valid
// and grounded in the result shape: axes must resolve against the result
// columns, kpi requires a single scalar, and an empty result can only be
// shown as text or a table.
func (e *Engine) applyDisplay(insight *Insight, response *llm.SynthesisResponse, question string, result *dataset.Result) {
	display := strings.ToLower(strings.TrimSpace(response.Display))

	grounded := IsValidDisplay(display)

	switch {
	case result.RowCount() == 0:
		if display != DisplayText && display != DisplayTable {
			grounded = false
		}
	case display == DisplayKPI:
		if result.RowCount() != 1 || len(result.Columns) != 1 {
			grounded = false
		}
	case display == DisplayBar || display == DisplayLine || display == DisplayPie:
		if !ColumnIn(response.XAxis, result.Columns) || !ColumnIn(response.YAxis, result.Columns) {
			grounded = false
		}
	}

	if grounded {
		insight.Display = display

		if display == DisplayBar || display == DisplayLine || display == DisplayPie {
			insight.XAxis = response.XAxis
			insight.YAxis = response.YAxis
		}

		return
	}

	logging.GetLogger().
		WithField("display", response.Display).
		Debug("Ungrounded display hint replaced with heuristic")

	insight.Display, insight.XAxis, insight.YAxis = SuggestDisplay(question, result)
}
