package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategorySession       ErrorCategory = "session"
	CategoryNetwork       ErrorCategory = "network"
	CategoryService       ErrorCategory = "service"
	CategoryIngestion     ErrorCategory = "ingestion"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Validation errors, raised locally before any network call
	CodeMissingComment    ErrorCode = "missing_comment"
	CodeInvalidExtension  ErrorCode = "invalid_extension"
	CodeMissingSelection  ErrorCode = "missing_selection"
	CodeMissingField      ErrorCode = "missing_field"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeInvalidValue      ErrorCode = "invalid_value"
	CodeBusy              ErrorCode = "busy"

	// Session errors
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeForbidden    ErrorCode = "forbidden"

	// Network errors
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeTimeout          ErrorCode = "timeout"

	// Service errors
	CodeServiceError ErrorCode = "service_error"
	CodeDecodeFailed ErrorCode = "decode_failed"
	CodeNotFound     ErrorCode = "not_found"

	// Ingestion errors
	CodeIngestionFailed ErrorCode = "ingestion_failed"
	CodeWorkbookInvalid ErrorCode = "workbook_invalid"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeTransitionFailed ErrorCode = "transition_failed"
	CodeRefreshFailed    ErrorCode = "refresh_failed"
	CodeUnexpectedError  ErrorCode = "unexpected_error"
)

// PortalError is the base error type for all application errors
type PortalError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *PortalError) Error() string {
	if e.Cause != nil && e.Category != CategoryValidation {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *PortalError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message shown to a user, with the suggestion appended.
func (e *PortalError) UserMessage() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// GetExitCode returns an appropriate exit code for the error
func (e *PortalError) GetExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryIngestion, CategoryService:
		return 5
	case CategoryNetwork:
		return 6
	case CategorySession:
		return 7
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *PortalError) WithContext(key string, value interface{}) *PortalError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *PortalError) WithSuggestion(suggestion string) *PortalError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PortalError
func New(category ErrorCategory, code ErrorCode, message string) *PortalError {
	return &PortalError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with PortalError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *PortalError {
	if err == nil {
		return nil
	}

	return &PortalError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message string, err error) *PortalError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// ValidationError creates a client-side validation error. These are never sent to the backend.
func ValidationError(code ErrorCode, field string, value interface{}) *PortalError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingComment:
		message = "a comment is required to reject a reconciliation"
		suggestion = "describe why the reconciliation is being rejected"
	case CodeInvalidExtension:
		message = fmt.Sprintf("unsupported file type for '%v'", value)
		suggestion = "upload an Excel workbook (.xls or .xlsx)"
	case CodeMissingSelection:
		message = fmt.Sprintf("no %s selected", field)
		suggestion = fmt.Sprintf("select a %s and try again", field)
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidTransition:
		message = fmt.Sprintf("transition to %v is not allowed from the current status", value)
		suggestion = "only records in Review can be approved or rejected"
	case CodeBusy:
		message = fmt.Sprintf("%s is already in progress", field)
		suggestion = "wait for the running operation to finish"
	default:
		message = fmt.Sprintf("invalid value for '%s': %v", field, value)
		suggestion = "check the value and try again"
	}

	return New(CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// SessionError creates an authentication or authorization error.
func SessionError(code ErrorCode, endpoint string, err error) *PortalError {
	var message string
	var suggestion string

	switch code {
	case CodeUnauthorized:
		message = fmt.Sprintf("session expired or invalid while calling %s", endpoint)
		suggestion = "sign in again and retry"
	case CodeForbidden:
		message = fmt.Sprintf("access denied to %s", endpoint)
		suggestion = "check that your role is allowed to perform this action"
	default:
		message = fmt.Sprintf("session error calling %s", endpoint)
		suggestion = "sign in again and retry"
	}

	return build(CategorySession, code, message, err).
		WithSuggestion(suggestion).
		WithContext("endpoint", endpoint)
}

// NetworkError creates a network-related error
func NetworkError(code ErrorCode, endpoint string, err error) *PortalError {
	var message string
	var suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("connection failed to %s", endpoint)
		suggestion = "check network connectivity and the api.base_url setting"
	case CodeTimeout:
		message = fmt.Sprintf("timeout calling %s", endpoint)
		suggestion = "increase api.timeout or try again later"
	default:
		message = fmt.Sprintf("network error: %s", endpoint)
		suggestion = "check network connection and try again"
	}

	return build(CategoryNetwork, code, message, err).
		WithSuggestion(suggestion).
		WithContext("endpoint", endpoint)
}

// ServiceError creates an error for a non-successful response from the portal API.
func ServiceError(code ErrorCode, endpoint string, status int, detail string, err error) *PortalError {
	var message string

	switch code {
	case CodeDecodeFailed:
		message = fmt.Sprintf("unexpected response from %s", endpoint)
	case CodeNotFound:
		message = fmt.Sprintf("%s was not found", detail)
	default:
		message = fmt.Sprintf("%s failed with status %d", endpoint, status)
		if detail != "" {
			message = fmt.Sprintf("%s: %s", message, detail)
		}
	}

	return build(CategoryService, code, message, err).
		WithContext("endpoint", endpoint).
		WithContext("status", status)
}

// IngestionError creates an error for a failed document ingestion phase.
func IngestionError(code ErrorCode, phase string, err error) *PortalError {
	var message string
	var suggestion string

	switch code {
	case CodeWorkbookInvalid:
		message = "the workbook could not be read"
		suggestion = "re-save the file as .xlsx and upload it again"
	default:
		message = fmt.Sprintf("document ingestion failed during %s", strings.ToLower(phase))
		suggestion = "fix the reported issues and upload the file again"
	}

	return build(CategoryIngestion, code, message, err).
		WithSuggestion(suggestion).
		WithContext("phase", phase)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *PortalError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting in the config file or as a PORTAL_ environment variable"
	default:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	}

	return build(CategoryConfiguration, code, message, err).
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// InternalError creates an error for a failed orchestration step.
func InternalError(code ErrorCode, operation string, err error) *PortalError {
	var message string

	switch code {
	case CodeTransitionFailed:
		message = fmt.Sprintf("status change failed for %s", operation)
	case CodeRefreshFailed:
		message = fmt.Sprintf("refresh failed after %s", operation)
	default:
		message = fmt.Sprintf("unexpected error during %s", operation)
	}

	return build(CategoryInternal, code, message, err).
		WithContext("operation", operation)
}

// AsPortalError extracts a PortalError from an error chain
func AsPortalError(err error) (*PortalError, bool) {
	var portalErr *PortalError
	if errors.As(err, &portalErr) {
		return portalErr, true
	}
	return nil, false
}

// HasCode reports whether any PortalError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if pe, ok := err.(*PortalError); ok && pe.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	pe, ok := AsPortalError(err)
	return ok && pe.Category == CategoryValidation
}

// IsSession reports whether err is an authentication or authorization failure.
func IsSession(err error) bool {
	pe, ok := AsPortalError(err)
	return ok && pe.Category == CategorySession
}

// WrapIfNeeded wraps an error if it's not already a PortalError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *PortalError {
	if err == nil {
		return nil
	}

	if portalErr, ok := AsPortalError(err); ok {
		return portalErr
	}

	return Wrap(err, category, code, message)
}
