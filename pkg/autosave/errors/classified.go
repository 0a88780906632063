// Package errors provides failure classification and retry handling for
// client-side API calls.
//
// The package implements a layered approach:
//   - Classification: normalize any raw failure into a ClassifiedError
//   - Retry: handle transient failures with exponential backoff
//   - Budgeting: bound total attempts and preserve the original error
package errors

import (
	"fmt"
	"time"
)

// ErrorType represents how a failure should be handled.
type ErrorType int

const (
	// TypeTransient indicates retry will likely help.
	// Examples: connection resets, 502/503/504, request timeouts.
	TypeTransient ErrorType = iota

	// TypePermanent indicates retry won't help until the user changes
	// something. Examples: validation failures, missing permissions.
	TypePermanent

	// TypeSystem indicates an unexpected server-side fault (HTTP 500,
	// unclassified 5xx). Not auto-retried; surfaced with a correlation ID.
	TypeSystem

	// TypeAIService indicates a failure from the AI generation service.
	// Rate-limited responses (429) are retryable with backoff.
	TypeAIService

	// TypeUnknown indicates an unrecognized failure shape. Never retried.
	TypeUnknown
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case TypeTransient:
		return "transient"
	case TypePermanent:
		return "permanent"
	case TypeSystem:
		return "system"
	case TypeAIService:
		return "ai_service"
	case TypeUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Severity indicates how serious a classified failure is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "critical"
	}
}

// SeverityFor maps an error type to its severity. The mapping is fixed:
// classification determines severity, never the other way around.
func SeverityFor(t ErrorType) Severity {
	switch t {
	case TypeTransient:
		return SeverityMedium
	case TypePermanent:
		return SeverityHigh
	case TypeSystem:
		return SeverityCritical
	case TypeAIService:
		return SeverityMedium
	default:
		return SeverityCritical
	}
}

// ClassifiedError is the canonical representation of any failure after
// triage. It wraps the original error so callers can still unwrap and
// compare against the failure they observed.
type ClassifiedError struct {
	// Type indicates how this error should be handled.
	Type ErrorType

	// Severity is derived from Type via SeverityFor.
	Severity Severity

	// Message is the user-facing description.
	Message string

	// Details is the raw technical message, for logs only.
	Details string

	// StatusCode is the HTTP status when the failure came from an API
	// response, 0 otherwise.
	StatusCode int

	// Retryable caches the retryability decision for fast checks.
	// True iff Type is TypeTransient, or TypeAIService with status 429.
	Retryable bool

	// CorrelationID is a fresh opaque identifier, unique per
	// classification event, shown to the user for support reference.
	CorrelationID string

	// Timestamp records when the classification happened.
	Timestamp time.Time

	// FieldErrors maps field names to messages for validation failures.
	FieldErrors map[string]string

	// SuggestedActions lists short remediation hints, in order.
	SuggestedActions []string

	// DelayHint overrides the retry base delay when non-zero. Timeout
	// failures set this to a longer delay because the server is already
	// under load.
	DelayHint time.Duration

	// Err is the original failure, when one existed.
	Err error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (type: %s, status: %d, id: %s)",
			e.Message, e.Type, e.StatusCode, e.CorrelationID)
	}
	return fmt.Sprintf("%s (type: %s, id: %s)", e.Message, e.Type, e.CorrelationID)
}

// Unwrap returns the original error.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the classified error should be retried.
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}
