// Package errors provides unified error handling for the engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Validation errors (1xxx)
	ErrCodeInvalidInput     ErrorCode = "VAL_1001"
	ErrCodeMissingParameter ErrorCode = "VAL_1002"
	ErrCodeInvalidFormat    ErrorCode = "VAL_1003"
	ErrCodeOutOfRange       ErrorCode = "VAL_1004"

	// Resource errors (2xxx)
	ErrCodeNotFound      ErrorCode = "RES_2001"
	ErrCodeAlreadyExists ErrorCode = "RES_2002"
	ErrCodeConflict      ErrorCode = "RES_2003"

	// Configuration errors (3xxx)
	ErrCodeConfigInvalid ErrorCode = "CFG_3001"
	ErrCodeConfigMissing ErrorCode = "CFG_3002"

	// Shared-state store errors (4xxx)
	ErrCodeStoreUnavailable ErrorCode = "STORE_4001"
	ErrCodeStoreOperation   ErrorCode = "STORE_4002"

	// Probe / check errors (5xxx)
	ErrCodeProbeTimeout  ErrorCode = "PROBE_5001"
	ErrCodeProbeFailed   ErrorCode = "PROBE_5002"
	ErrCodeProbeUnsup    ErrorCode = "PROBE_5003"

	// Competition state errors (6xxx)
	ErrCodeStateConflict  ErrorCode = "STATE_6001"
	ErrCodeNotActive      ErrorCode = "STATE_6002"
	ErrCodeAlreadyStarted ErrorCode = "STATE_6003"

	// Rate limiting (7xxx)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_7001"

	// Internal (8xxx)
	ErrCodeInternal ErrorCode = "SVC_8001"
	ErrCodeTimeout  ErrorCode = "SVC_8002"
)

// ServiceError represents a structured error with code, message, and HTTP status
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new ServiceError
func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with a ServiceError
func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Validation Errors

func InvalidInput(field, reason string) *ServiceError {
	return New(ErrCodeInvalidInput, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

func MissingParameter(param string) *ServiceError {
	return New(ErrCodeMissingParameter, "missing required parameter", http.StatusBadRequest).
		WithDetails("parameter", param)
}

func InvalidFormat(field, expected string) *ServiceError {
	return New(ErrCodeInvalidFormat, "invalid format", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("expected", expected)
}

func OutOfRange(field string, minValue, maxValue interface{}) *ServiceError {
	return New(ErrCodeOutOfRange, "value out of range", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("min", minValue).
		WithDetails("max", maxValue)
}

// Resource Errors

func NotFound(resource, id string) *ServiceError {
	return New(ErrCodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

func AlreadyExists(resource, id string) *ServiceError {
	return New(ErrCodeAlreadyExists, "resource already exists", http.StatusConflict).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

func Conflict(message string) *ServiceError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// Configuration Errors

func ConfigInvalid(reason string) *ServiceError {
	return New(ErrCodeConfigInvalid, "invalid competition configuration", http.StatusInternalServerError).
		WithDetails("reason", reason)
}

func ConfigMissing(path string) *ServiceError {
	return New(ErrCodeConfigMissing, "competition configuration not found", http.StatusInternalServerError).
		WithDetails("path", path)
}

// Store Errors

func StoreUnavailable(err error) *ServiceError {
	return Wrap(ErrCodeStoreUnavailable, "shared-state store unavailable", http.StatusServiceUnavailable, err)
}

func StoreOperation(operation string, err error) *ServiceError {
	return Wrap(ErrCodeStoreOperation, "shared-state store operation failed", http.StatusInternalServerError, err).
		WithDetails("operation", operation)
}

// Probe Errors

func ProbeTimeout(check, host string) *ServiceError {
	return New(ErrCodeProbeTimeout, "check timed out", http.StatusGatewayTimeout).
		WithDetails("check", check).
		WithDetails("host", host)
}

func ProbeFailed(check, host string, err error) *ServiceError {
	return Wrap(ErrCodeProbeFailed, "check failed", http.StatusBadGateway, err).
		WithDetails("check", check).
		WithDetails("host", host)
}

func ProbeUnsupported(checkType string) *ServiceError {
	return New(ErrCodeProbeUnsup, "unsupported check type", http.StatusBadRequest).
		WithDetails("type", checkType)
}

// Competition State Errors

func StateConflict(from, to string) *ServiceError {
	return New(ErrCodeStateConflict, "invalid competition state transition", http.StatusConflict).
		WithDetails("from", from).
		WithDetails("to", to)
}

func NotActive(competition string) *ServiceError {
	return New(ErrCodeNotActive, "competition is not active", http.StatusConflict).
		WithDetails("competition", competition)
}

func AlreadyStarted(competition string) *ServiceError {
	return New(ErrCodeAlreadyStarted, "competition has already started", http.StatusConflict).
		WithDetails("competition", competition)
}

// Rate Limit Errors

func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(ErrCodeRateLimitExceeded, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal Errors

func Internal(message string, err error) *ServiceError {
	return Wrap(ErrCodeInternal, message, http.StatusInternalServerError, err)
}

func Timeout(operation string) *ServiceError {
	return New(ErrCodeTimeout, "operation timed out", http.StatusGatewayTimeout).
		WithDetails("operation", operation)
}

// Helper functions

// IsServiceError checks if an error is a ServiceError
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
