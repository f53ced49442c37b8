package domain

import (
	"fmt"
	"time"
)

// ValidationError reports a measurement field that is missing, out of its
// physiological range, or of the wrong shape. Validation is all-or-nothing
// per exam; values are never silently coerced or clamped.
type ValidationError struct {
	Field  string      `json:"field"`
	Reason string      `json:"reason"`
	Value  interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Reason)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}

// UnclassifiablePatternError reports an interference pattern observation
// outside the enumerated category set. The grader fails closed: defaulting
// an unknown pattern to a grade would corrupt downstream severity staging.
type UnclassifiablePatternError struct {
	Pattern InterferencePattern `json:"pattern"`
}

// Error implements the error interface
func (e *UnclassifiablePatternError) Error() string {
	return fmt.Sprintf("unclassifiable interference pattern %q: not in the enumerated category set", string(e.Pattern))
}

// InsufficientDataError reports that no usable staining observations were
// provided, so no composite score can be computed.
type InsufficientDataError struct {
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// APIError represents a standardized error response for the HTTP and MCP
// surfaces.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeClassification = "CLASSIFICATION_ERROR"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
