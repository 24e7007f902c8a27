package common

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration for configuration-related errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeValidation for malformed or incomplete requests
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuth for rejected credentials
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeTracker for failures talking to the issue tracker
	ErrorTypeTracker ErrorType = "tracker"
	// ErrorTypeLLM for language model failures, including unusable replies
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeProxy for failures talking to the tracker proxy
	ErrorTypeProxy ErrorType = "proxy"
	// ErrorTypeNetwork for transport failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeStorage for chat history persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInternal for internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// ServiceError represents a structured error with context
type ServiceError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *ServiceError) WithContext(key string, value interface{}) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *ServiceError) WithCause(cause error) *ServiceError {
	e.Cause = cause
	return e
}

// WithDetails sets the free-text details shown after the message
func (e *ServiceError) WithDetails(details string) *ServiceError {
	e.Details = details
	return e
}

func NewError(errorType ErrorType, code, message string) *ServiceError {
	return &ServiceError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewConfigurationError(code, message string) *ServiceError {
	return NewError(ErrorTypeConfiguration, code, message)
}

func NewValidationError(code, message string) *ServiceError {
	return NewError(ErrorTypeValidation, code, message)
}

func NewAuthError(code, message string) *ServiceError {
	return NewError(ErrorTypeAuth, code, message)
}

func NewLLMError(code, message string) *ServiceError {
	return NewError(ErrorTypeLLM, code, message)
}

func NewProxyError(code, message string) *ServiceError {
	return NewError(ErrorTypeProxy, code, message)
}

func NewStorageError(code, message string) *ServiceError {
	return NewError(ErrorTypeStorage, code, message)
}

func WrapError(err error, errorType ErrorType, code, message string) *ServiceError {
	return &ServiceError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// TrackerError is a non-success answer from the issue tracker. Status and
// Body are passed through to proxy callers unchanged.
type TrackerError struct {
	Operation string
	Status    int
	Body      string
}

func (e *TrackerError) Error() string {
	return fmt.Sprintf("%s: tracker returned status %d: %s", e.Operation, e.Status, e.Body)
}

// StatusCode maps an error to the HTTP status a handler should answer with.
func StatusCode(err error) int {
	var trackerErr *TrackerError
	if errors.As(err, &trackerErr) {
		return trackerErr.Status
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.Type {
		case ErrorTypeValidation:
			return http.StatusBadRequest
		case ErrorTypeAuth:
			return http.StatusUnauthorized
		case ErrorTypeTracker, ErrorTypeNetwork, ErrorTypeProxy, ErrorTypeLLM:
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}

// Detail returns the text a handler should place in the "detail" field.
// Tracker errors expose the upstream body, validation errors their message.
func Detail(err error) string {
	var trackerErr *TrackerError
	if errors.As(err, &trackerErr) {
		return trackerErr.Body
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Type == ErrorTypeValidation {
		return serviceErr.Message
	}

	return err.Error()
}
