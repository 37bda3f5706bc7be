package sqlgen

import (
	"context"

	"github.com/insightx/upi-insight/internal/chat"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/examples"
	"github.com/insightx/upi-insight/internal/llm"
	"github.com/insightx/upi-insight/internal/logging"
	"github.com/insightx/upi-insight/internal/schema"
)

// Generator produces validated SQL for natural language questions. A
// statement that fails local validation is regenerated once with the
// rejection reason in the prompt; a second failure is returned to the
// caller.
type Generator struct {
	service     llm.Service
	descriptor  *schema.Descriptor
	index       *examples.Index
	examplePick int
}

// NewGenerator creates a generator over the given schema and example library.
func NewGenerator(service llm.Service, descriptor *schema.Descriptor, index *examples.Index, examplePick int) *Generator {
	if examplePick <= 0 {
		examplePick = 8
	}

	return &Generator{
		service:     service,
		descriptor:  descriptor,
		index:       index,
		examplePick: examplePick,
	}
}

// Generate returns a single validated read-only SQL statement.
func (g *Generator) Generate(ctx context.Context, question string, history []chat.Turn) (string, error) {
	req := llm.GenerateRequest{
		Question:    question,
		SchemaBlock: g.descriptor.PromptBlock(),
		Examples:    g.index.Select(question, g.examplePick),
		Context:     history,
	}

	sql, err := g.service.GenerateSQL(ctx, req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeServiceUnavailable, "SQL generation failed")
	}

	validationErr := Validate(sql, g.descriptor)
	if validationErr == nil {
		return sql, nil
	}

	logging.GetLogger().
		WithField("rejection", validationErr.Error()).
		Warn("Generated SQL rejected, regenerating once")

	req.RejectionReason = validationErr.Error()

	sql, err = g.service.GenerateSQL(ctx, req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeServiceUnavailable, "SQL regeneration failed")
	}

	if err := Validate(sql, g.descriptor); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeValidation,
			"could not produce a valid query for this question").
			WithSuggestion("Try rephrasing the question using fields from the transaction data")
	}

	return sql, nil
}
