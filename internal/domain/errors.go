package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeOutOfRange   ErrorCode = "OUT_OF_RANGE"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"

	// Test lifecycle errors
	CodeNotAssigned          ErrorCode = "NOT_ASSIGNED"
	CodeAttemptLimitExceeded ErrorCode = "ATTEMPT_LIMIT_EXCEEDED"
	CodeTestNotOpen          ErrorCode = "TEST_NOT_OPEN"
	CodeAttemptClosed        ErrorCode = "ATTEMPT_CLOSED"
	CodeItemNotInTest        ErrorCode = "ITEM_NOT_IN_TEST"
	CodeAlreadyClosed        ErrorCode = "ALREADY_CLOSED"

	// Essay assistant errors
	CodeAssistantUnavailable ErrorCode = "ASSISTANT_UNAVAILABLE"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Helper constructors for common errors

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewConflictError(message string) *DomainError {
	return NewError(CodeConflict, message, nil)
}

func NewScoreOutOfRangeError(score, maxPoints int) *DomainError {
	return &DomainError{
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("score %d exceeds the item's maximum of %d points", score, maxPoints),
		Context: map[string]interface{}{"score": score, "max_points": maxPoints},
	}
}

func NewNotAssignedError(testID, studentID string) *DomainError {
	return &DomainError{
		Code:    CodeNotAssigned,
		Message: "student is not assigned to this test",
		Context: map[string]interface{}{"test_id": testID, "student_id": studentID},
	}
}

func NewAttemptLimitExceededError(testID string, maxAttempts int) *DomainError {
	return &DomainError{
		Code:    CodeAttemptLimitExceeded,
		Message: fmt.Sprintf("maximum of %d attempts reached for this test", maxAttempts),
		Context: map[string]interface{}{"test_id": testID, "max_attempts": maxAttempts},
	}
}

func NewTestNotOpenError(testID string) *DomainError {
	return &DomainError{
		Code:    CodeTestNotOpen,
		Message: "test is not open for attempts",
		Context: map[string]interface{}{"test_id": testID},
	}
}

func NewAttemptClosedError(attemptID string) *DomainError {
	return &DomainError{
		Code:    CodeAttemptClosed,
		Message: "attempt is no longer in progress",
		Context: map[string]interface{}{"attempt_id": attemptID},
	}
}

func NewItemNotInTestError(itemID, testID string) *DomainError {
	return &DomainError{
		Code:    CodeItemNotInTest,
		Message: "item does not belong to the attempted test",
		Context: map[string]interface{}{"item_id": itemID, "test_id": testID},
	}
}

func NewAlreadyClosedError(testID string) *DomainError {
	return &DomainError{
		Code:    CodeAlreadyClosed,
		Message: "test is already closed",
		Context: map[string]interface{}{"test_id": testID},
	}
}

func NewAssistantUnavailableError(cause error) *DomainError {
	return NewError(CodeAssistantUnavailable, "essay assistant is unavailable", cause)
}
