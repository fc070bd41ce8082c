package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Detail  string              // raw upstream/LLM text kept for diagnosis
	Fields  map[string][]string // field-level messages for validation failures
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Detail:  appErr.Detail,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Detail:  appErr.Detail,
			Fields:  appErr.Fields,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetDetail returns the diagnostic detail attached to an AppError, if any
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// GetFields returns field-level validation messages, if any
func GetFields(err error) map[string][]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// Is reports whether err carries the given code
func Is(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeUpstreamError   = "UPSTREAM_ERROR"
	CodeLLMParseError   = "LLM_PARSE_ERROR"
	CodeChoiceNotInPool = "CHOICE_NOT_IN_POOL"
	CodeNoCandidates    = "NO_CANDIDATES"
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNetworkError    = "NETWORK_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// Upstream marks a non-2xx or transport failure talking to an LLM provider.
// The provider response body is carried in Detail for diagnosis.
func Upstream(message, detail string) *AppError {
	return &AppError{Code: CodeUpstreamError, Message: message, Detail: detail}
}

// ParseFailed marks an LLM reply that did not contain a well-formed decision
// object. The raw model output is preserved in Detail, never discarded.
func ParseFailed(raw string) *AppError {
	return &AppError{Code: CodeLLMParseError, Message: "LLM output parse failed", Detail: raw}
}

// ChoiceNotInPool marks an LLM decision naming a user id absent from the
// fetched candidate pool.
func ChoiceNotInPool(userID int64, poolIDs []int64) *AppError {
	return &AppError{
		Code:    CodeChoiceNotInPool,
		Message: "Chosen user not in candidate list",
		Detail:  fmt.Sprintf("user_id=%d candidate_ids=%v", userID, poolIDs),
	}
}

func NoCandidates() *AppError {
	return New(CodeNoCandidates, "No candidates available")
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ValidationFailed carries per-field messages returned by the backend
func ValidationFailed(fields map[string][]string) *AppError {
	return &AppError{Code: CodeValidationError, Message: "validation failed", Fields: fields}
}

func NetworkError(err error) *AppError {
	return &AppError{Code: CodeNetworkError, Message: "request failed", Cause: err}
}
