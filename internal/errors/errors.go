package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Garden error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrUpstream       ErrorCode = "UPSTREAM"        // 502
	ErrConfig         ErrorCode = "CONFIG"          // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// GardenError represents a structured error with code, status, and details.
type GardenError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GardenError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GardenError {
	return &GardenError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for missing or bad credentials.
func NewUnauthorized() *GardenError {
	return &GardenError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: "unauthorized",
	}
}

// NewNotFound creates a 404 error for a missing capture or document.
func NewNotFound(identifier string) *GardenError {
	return &GardenError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for state-transition conflicts.
func NewConflict(msg string) *GardenError {
	return &GardenError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewUpstream creates a 502 error for a failed external-service call.
// The step names the pipeline stage that failed.
func NewUpstream(step string, err error) *GardenError {
	msg := step
	if err != nil {
		msg = fmt.Sprintf("%s: %v", step, err)
	}
	return &GardenError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"step": step},
	}
}

// NewConfig creates a 500 error for missing required configuration.
func NewConfig(msg string) *GardenError {
	return &GardenError{
		Code:    ErrConfig,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The original error is kept in Details for logging; the message stays generic.
func NewInternal(err error) *GardenError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &GardenError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a GardenError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GardenError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}
