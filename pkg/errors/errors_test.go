package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewExternalError("search backend failed", fmt.Errorf("timeout"))
	assert.Equal(t, "EXTERNAL: search backend failed: timeout", err.Error())

	assert.Equal(t, "NOT_FOUND: facet not found", NewNotFoundError("facet not found").Error())
}

func TestAppError_IsAndUnwrap(t *testing.T) {
	sentinel := NewPreconditionError("no search has been performed")
	wrapped := fmt.Errorf("url param: %w", NewPreconditionError("no search has been performed"))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, NewPreconditionError("other")))

	cause := fmt.Errorf("connection refused")
	assert.ErrorIs(t, NewInternalError("boom", cause), cause)
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewNotFoundError("facet not found"))
	assert.True(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeNotFound))
}
