package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrTypeValidation, "generated SQL references unknown column")
	assert.Equal(t, "validation: generated SQL references unknown column", err.Error())

	wrapped := Wrap(fmt.Errorf("no such column: foo"), ErrTypeExecution, "query rejected by engine")
	assert.Contains(t, wrapped.Error(), "execution: query rejected by engine")
	assert.Contains(t, wrapped.Error(), "no such column: foo")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrTypeServiceUnavailable, "reasoning service unreachable")

	assert.ErrorIs(t, err, cause)
}

func TestIsType(t *testing.T) {
	err := New(ErrTypePersistence, "failed to append message")

	assert.True(t, IsType(err, ErrTypePersistence))
	assert.False(t, IsType(err, ErrTypeValidation))
	assert.False(t, IsType(errors.New("plain"), ErrTypePersistence))

	// Wrapping with fmt.Errorf keeps the type discoverable.
	wrapped := fmt.Errorf("pipeline: %w", err)
	assert.True(t, IsType(wrapped, ErrTypePersistence))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeExecution, GetType(New(ErrTypeExecution, "boom")))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid row cap", "database.row_cap")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "database.row_cap")
	assert.NotEmpty(t, err.Suggestions)
}
