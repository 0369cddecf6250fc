package threads

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewError(ErrCodeNotFound, "message not found")
	assert.Equal(t, "NOT_FOUND: message not found", err.Error())
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewErrorWithCause(ErrCodeDatabase, "failed to load message", cause)

	assert.Equal(t, "DATABASE_ERROR: failed to load message: connection reset", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData(ErrNoData))
	assert.True(t, IsNoData(fmt.Errorf("loading: %w", ErrNoData)))
	assert.False(t, IsNoData(NewError(ErrCodeNotFound, "gone")))
	assert.False(t, IsNoData(nil))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		code      string
		predicate func(error) bool
	}{
		{ErrCodeNotFound, IsNotFound},
		{ErrCodeOwnership, IsOwnershipViolation},
		{ErrCodeVersionConflict, IsVersionConflict},
		{ErrCodeUniqueViolation, IsUniqueViolation},
		{ErrCodeInvalidCursor, IsInvalidCursor},
		{ErrCodeMissingThreadID, IsMissingThreadID},
		{ErrCodeValidation, IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.True(t, tt.predicate(NewError(tt.code, "boom")))
			assert.True(t, tt.predicate(fmt.Errorf("wrapped: %w", NewError(tt.code, "boom"))))
			assert.False(t, tt.predicate(NewError(ErrCodeDatabase, "boom")))
			assert.False(t, tt.predicate(errors.New("plain")))
		})
	}
}
