package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrUpstreamMalformed    = errors.New("upstream malformed")
	ErrPersistenceFailed    = errors.New("persistence failed")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeUpstream    ErrorType = "upstream"
	ErrorTypeMalformed   ErrorType = "malformed"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNotFound    ErrorType = "not_found"
)

// AssessmentError is a structured error for assessment operations
type AssessmentError struct {
	Type       ErrorType
	Op         string // Operation that failed (e.g., "list_admins", "write_batch")
	Org        string // Organization the operation ran for
	Check      string // Check name if a module owned the failure
	Err        error  // Underlying error
	StatusCode int    // HTTP status code from the upstream API if applicable
	Timestamp  time.Time
}

func (e *AssessmentError) Error() string {
	if e.Check != "" {
		return fmt.Sprintf("%s failed for %s/%s: %v", e.Op, e.Org, e.Check, e.Err)
	}
	if e.Org != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Org, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *AssessmentError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *AssessmentError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrAuthenticationFailed:
		return e.Type == ErrorTypeAuth
	case ErrUpstreamUnavailable:
		return e.Type == ErrorTypeUpstream
	case ErrUpstreamMalformed:
		return e.Type == ErrorTypeMalformed
	case ErrPersistenceFailed:
		return e.Type == ErrorTypePersistence
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	}

	return errors.Is(e.Err, target)
}

// New creates a new AssessmentError
func New(errorType ErrorType, op, org string, err error) *AssessmentError {
	return &AssessmentError{
		Type:      errorType,
		Op:        op,
		Org:       org,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithCheck adds the owning check module to the error
func (e *AssessmentError) WithCheck(check string) *AssessmentError {
	e.Check = check
	return e
}

// WithStatusCode adds the upstream HTTP status code to the error
func (e *AssessmentError) WithStatusCode(code int) *AssessmentError {
	e.StatusCode = code
	return e
}

// Helper functions

// WrapAuthError wraps an authentication error with context
func WrapAuthError(op, org string, err error) error {
	return New(ErrorTypeAuth, op, org, err)
}

// WrapUpstreamError wraps a non-2xx upstream response with context
func WrapUpstreamError(op, org string, err error, statusCode int) error {
	return New(ErrorTypeUpstream, op, org, err).WithStatusCode(statusCode)
}

// WrapMalformedError wraps an unexpected-body-shape error with context
func WrapMalformedError(op, org string, err error) error {
	return New(ErrorTypeMalformed, op, org, err)
}

// WrapPersistenceError wraps a database error with context
func WrapPersistenceError(op, org string, err error) error {
	return New(ErrorTypePersistence, op, org, err)
}

// WrapValidationError wraps a bad-input error with context
func WrapValidationError(op, org string, err error) error {
	return New(ErrorTypeValidation, op, org, err)
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var aerr *AssessmentError
	if errors.As(err, &aerr) {
		if aerr.Type == ErrorTypeAuth {
			return true
		}
		if aerr.StatusCode == 401 || aerr.StatusCode == 403 {
			return true
		}
	}

	return errors.Is(err, ErrAuthenticationFailed)
}

// IsUpstreamError reports whether an error is recoverable by a check module
// (zero score + finding) rather than fatal to the run.
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamMalformed)
}
