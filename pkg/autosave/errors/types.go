package errors

import "fmt"

// APIError represents a structured error payload from the book API.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
	Endpoint   string

	// Fields carries per-field validation messages when the server
	// returned them.
	Fields map[string]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError indicates a transport-layer failure before any HTTP
// response arrived.
type NetworkError struct {
	Op      string
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("network error during %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

// Unwrap returns the wrapped transport error.
func (e *NetworkError) Unwrap() error {
	return e.Wrapped
}

// TimeoutError indicates an operation exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// ValidationError indicates the request was rejected as invalid before
// or after reaching the server.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
