package threads

import (
	"errors"
	"fmt"
)

// Error represents a threads library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for threads operations.
const (
	// ErrCodeNoData indicates no data was found at the storage layer.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeNotFound indicates the message is absent or logically invisible
	// for the requested operation. Soft-deleted messages are not found for
	// mutation purposes.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeOwnership indicates the acting author is not the message author.
	ErrCodeOwnership = "OWNERSHIP_VIOLATION"

	// ErrCodeVersionConflict indicates the optimistic concurrency check failed.
	ErrCodeVersionConflict = "VERSION_CONFLICT"

	// ErrCodeUniqueViolation indicates an idempotency key or identifier
	// collided with an existing row at the storage level.
	ErrCodeUniqueViolation = "UNIQUE_CONSTRAINT_VIOLATION"

	// ErrCodeInvalidCursor indicates a malformed pagination token.
	ErrCodeInvalidCursor = "INVALID_CURSOR"

	// ErrCodeMissingThreadID indicates a listing was requested without a thread.
	ErrCodeMissingThreadID = "MISSING_THREAD_ID"

	// ErrCodeValidation indicates request validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid service configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned by repositories when a query returns no rows.
	// This is not necessarily an error condition in all cases; the service
	// layer translates it into NOT_FOUND where absence matters.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

func hasCode(err error, code string) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Code == code
	}
	return false
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return hasCode(err, ErrCodeNoData) || errors.Is(err, ErrNoData)
}

// IsNotFound checks if an error carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsOwnershipViolation checks if an error carries the OWNERSHIP_VIOLATION code.
func IsOwnershipViolation(err error) bool {
	return hasCode(err, ErrCodeOwnership)
}

// IsVersionConflict checks if an error carries the VERSION_CONFLICT code.
func IsVersionConflict(err error) bool {
	return hasCode(err, ErrCodeVersionConflict)
}

// IsUniqueViolation checks if an error carries the UNIQUE_CONSTRAINT_VIOLATION code.
func IsUniqueViolation(err error) bool {
	return hasCode(err, ErrCodeUniqueViolation)
}

// IsInvalidCursor checks if an error carries the INVALID_CURSOR code.
func IsInvalidCursor(err error) bool {
	return hasCode(err, ErrCodeInvalidCursor)
}

// IsMissingThreadID checks if an error carries the MISSING_THREAD_ID code.
func IsMissingThreadID(err error) bool {
	return hasCode(err, ErrCodeMissingThreadID)
}

// IsValidation checks if an error carries the VALIDATION_ERROR code.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}
