// Package notify maps classified failures to user-visible notifications
// and pushes them through an injected sink. The package builds messages
// only; rendering belongs to the hosting UI's toast system.
package notify

import (
	"log/slog"

	saverrors "github.com/frankbria/auto-author-sub012/pkg/autosave/errors"
)

// Variant selects the visual treatment of a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is one user-visible alert.
type Notification struct {
	// Title is the short headline, derived from the error type.
	Title string

	// Description is the human-readable message body.
	Description string

	// Variant selects the visual treatment.
	Variant Variant

	// CorrelationID lets the user quote the incident to support.
	// Empty for failures that don't need support follow-up.
	CorrelationID string

	// Actions lists suggested remediations, in order.
	Actions []string
}

// Sink receives finished notifications. The hosting UI supplies one
// wired to its toast/alert system.
type Sink func(Notification)

// Dispatcher builds notifications from classified errors.
type Dispatcher struct {
	sink   Sink
	logger *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher that pushes through sink.
func NewDispatcher(sink Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchOption adjusts a single dispatch.
type DispatchOption func(*Notification)

// WithDescription overrides the description for this dispatch.
func WithDescription(msg string) DispatchOption {
	return func(n *Notification) {
		n.Description = msg
	}
}

// Dispatch builds the notification for a classified error and pushes it
// through the sink. Callers invoke this exactly once per terminal
// failure; silently-retried intermediate failures never reach here.
func (d *Dispatcher) Dispatch(ce *saverrors.ClassifiedError, opts ...DispatchOption) {
	if ce == nil || d.sink == nil {
		return
	}

	n := Build(ce)
	for _, opt := range opts {
		opt(&n)
	}

	d.logger.Debug("dispatching notification",
		slog.String("title", n.Title),
		slog.String("type", ce.Type.String()),
		slog.String("correlation_id", ce.CorrelationID),
	)
	d.sink(n)
}

// Build maps a classified error to its notification without sending it.
func Build(ce *saverrors.ClassifiedError) Notification {
	n := Notification{
		Title:       Title(ce),
		Description: ce.Message,
		Variant:     variantFor(ce.Severity),
		Actions:     ce.SuggestedActions,
	}
	// System and unknown faults carry the correlation ID so users can
	// quote it to support.
	if ce.Type == saverrors.TypeSystem || ce.Type == saverrors.TypeUnknown {
		n.CorrelationID = ce.CorrelationID
	}
	return n
}

// Title derives the notification headline from the error classification.
func Title(ce *saverrors.ClassifiedError) string {
	switch ce.Type {
	case saverrors.TypeTransient:
		return "Network Error"
	case saverrors.TypePermanent:
		switch {
		case ce.StatusCode == 401 || ce.StatusCode == 403:
			return "Authentication Error"
		case ce.StatusCode == 400 || ce.StatusCode == 422 || len(ce.FieldErrors) > 0:
			return "Validation Error"
		default:
			return "Error"
		}
	case saverrors.TypeSystem:
		return "Server Error"
	case saverrors.TypeAIService:
		if ce.StatusCode == 429 {
			return "Too Many Requests"
		}
		return "AI Service Error"
	default:
		return "Error"
	}
}

func variantFor(s saverrors.Severity) Variant {
	if s >= saverrors.SeverityHigh {
		return VariantDestructive
	}
	return VariantDefault
}
