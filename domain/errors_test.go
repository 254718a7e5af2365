package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrTaskNotFound, ErrCodeNotFound))
	assert.False(t, IsDomainError(ErrTaskNotFound, ErrCodeForbidden))
	assert.False(t, IsDomainError(errors.New("plain"), ErrCodeInternal))

	wrapped := fmt.Errorf("loading task: %w", ErrTaskNotFound)
	assert.True(t, IsDomainError(wrapped, ErrCodeNotFound))
}

func TestWrapError(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrCodeInternal, "query failed", cause)

	assert.Equal(t, "query failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestValidationError(t *testing.T) {
	verr := NewValidationError()
	assert.False(t, verr.HasErrors())

	verr.Add("title", "this field is required").
		Add("title", "too long").
		Add("body", "this field is required")

	assert.True(t, verr.HasErrors())
	assert.Len(t, verr.Fields["title"], 2)
	assert.Contains(t, verr.Error(), "required")
}

func TestValidationError_ClassifiesAsInvalid(t *testing.T) {
	verr := NewValidationError().Add("title", "this field is required")

	var dErr *Error
	require.ErrorAs(t, error(verr), &dErr)
	assert.Equal(t, ErrCodeInvalid, dErr.Code)
	assert.True(t, IsDomainError(verr, ErrCodeInvalid))
}
