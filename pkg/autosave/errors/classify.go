package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Timeout failures get a longer base delay than other transient
// failures: a timed-out server is already under load.
const timeoutDelayHint = 3 * time.Second

// Classifier normalizes raw failures into ClassifiedErrors. The zero
// value is not usable; use NewClassifier or the package-level Classify.
type Classifier struct {
	now   func() time.Time
	newID func() string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithIDGenerator sets the correlation ID generator.
func WithIDGenerator(fn func() string) ClassifierOption {
	return func(c *Classifier) {
		c.newID = fn
	}
}

// NewClassifier creates a classifier with the given options.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		now:   time.Now,
		newID: newCorrelationID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newCorrelationID() string {
	return fmt.Sprintf("err-%s", uuid.New().String()[:8])
}

var defaultClassifier = NewClassifier()

// Classify normalizes any raw failure into a ClassifiedError using the
// process-wide clock and ID source.
func Classify(v any) *ClassifiedError {
	return defaultClassifier.Classify(v)
}

// rawKind tags the normalized shape of an incoming failure.
type rawKind int

const (
	rawNil rawKind = iota
	rawError
	rawString
	rawPayload
)

// rawFailure is the single internal shape every input is normalized to
// before classification rules run. Shape sniffing lives in normalize;
// the rules themselves only look at these fields.
type rawFailure struct {
	kind    rawKind
	err     error
	message string
	detail  string
	status  int
	fields  map[string]string
}

// Classify normalizes v and applies the classification rules in order,
// first match wins. Already-classified errors pass through unchanged.
func (c *Classifier) Classify(v any) *ClassifiedError {
	if ce, ok := v.(*ClassifiedError); ok && ce != nil {
		return ce
	}
	if err, ok := v.(error); ok {
		var ce *ClassifiedError
		if stderrors.As(err, &ce) {
			return ce
		}
	}

	raw := normalize(v)

	// Rule 1: transport-layer network failure.
	if isNetworkFailure(raw) {
		return c.build(TypeTransient, raw,
			"Connection problem. Please check your network and try again.",
			[]string{"Check your internet connection", "Try again in a moment"}, 0)
	}

	// Rule 2: HTTP status mapping.
	if raw.status != 0 {
		return c.classifyStatus(raw)
	}

	// Rule 3: timeout pattern in the message text.
	if isTimeoutFailure(raw) {
		return c.build(TypeTransient, raw,
			"The server is taking too long to respond. Please try again shortly.",
			[]string{"Try again in a moment"}, timeoutDelayHint)
	}

	// Rule 4: validation-error schema without a status code.
	if len(raw.fields) > 0 {
		return c.build(TypePermanent, raw,
			firstNonEmpty(raw.message, "Please correct the highlighted fields and try again."),
			[]string{"Review the highlighted fields"}, 0)
	}

	// Rule 5: unrecognized shape.
	return c.build(TypeUnknown, raw,
		"An unexpected error occurred. Please try again or contact support.",
		[]string{"Try again later", "Contact support with the error ID"}, 0)
}

func (c *Classifier) classifyStatus(raw rawFailure) *ClassifiedError {
	switch {
	case raw.status == 400, raw.status == 422:
		return c.build(TypePermanent, raw,
			firstNonEmpty(raw.message, "Please correct the highlighted fields and try again."),
			[]string{"Review the highlighted fields"}, 0)
	case raw.status == 401, raw.status == 403:
		return c.build(TypePermanent, raw,
			"Your session has expired. Please sign in again.",
			[]string{"Sign in again"}, 0)
	case raw.status == 404:
		return c.build(TypePermanent, raw,
			"The requested item could not be found.", nil, 0)
	case raw.status == 409:
		return c.build(TypePermanent, raw,
			"This item was changed somewhere else. Refresh and try again.",
			[]string{"Refresh the page"}, 0)
	case raw.status == 429:
		return c.build(TypeAIService, raw,
			"The AI service is receiving too many requests. Retrying shortly.",
			[]string{"Wait a moment before retrying"}, 0)
	case raw.status == 502, raw.status == 503, raw.status == 504:
		return c.build(TypeTransient, raw,
			"The server is temporarily unavailable. Retrying.",
			[]string{"Try again in a moment"}, 0)
	case raw.status >= 500:
		// A raw 500 is a server fault, not a known-transient gateway
		// condition, and is deliberately not auto-retried.
		return c.build(TypeSystem, raw,
			"Something went wrong on our side. Please try again later.",
			[]string{"Try again later", "Contact support with the error ID"}, 0)
	default:
		return c.build(TypePermanent, raw,
			firstNonEmpty(raw.message, "The request could not be completed."), nil, 0)
	}
}

// build assembles a ClassifiedError with derived severity, retryability,
// a fresh correlation ID, and a timestamp.
func (c *Classifier) build(t ErrorType, raw rawFailure, message string, actions []string, hint time.Duration) *ClassifiedError {
	ce := &ClassifiedError{
		Type:             t,
		Severity:         SeverityFor(t),
		Message:          message,
		Details:          firstNonEmpty(raw.detail, raw.message),
		StatusCode:       raw.status,
		Retryable:        t == TypeTransient || (t == TypeAIService && raw.status == 429),
		CorrelationID:    c.newID(),
		Timestamp:        c.now(),
		SuggestedActions: actions,
		DelayHint:        hint,
		Err:              raw.err,
	}
	if len(raw.fields) > 0 {
		ce.FieldErrors = raw.fields
	}
	return ce
}

// normalize converts any incoming value into a rawFailure. All shape
// sniffing happens here so the classification rules stay pure.
func normalize(v any) rawFailure {
	switch val := v.(type) {
	case nil:
		return rawFailure{kind: rawNil, message: "nil error"}
	case *APIError:
		return rawFailure{
			kind:    rawError,
			err:     val,
			message: val.Message,
			detail:  val.Detail,
			status:  val.StatusCode,
			fields:  val.Fields,
		}
	case error:
		return normalizeError(val)
	case string:
		return rawFailure{kind: rawString, message: val}
	case map[string]any:
		return normalizePayload(val)
	default:
		return rawFailure{kind: rawString, message: fmt.Sprintf("%v", v)}
	}
}

func normalizeError(err error) rawFailure {
	raw := rawFailure{kind: rawError, err: err, message: err.Error()}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		raw.message = apiErr.Message
		raw.detail = apiErr.Detail
		raw.status = apiErr.StatusCode
		raw.fields = apiErr.Fields
		return raw
	}

	var valErr *ValidationError
	if stderrors.As(err, &valErr) && valErr.Field != "" {
		raw.fields = map[string]string{valErr.Field: valErr.Message}
	}

	return raw
}

func normalizePayload(m map[string]any) rawFailure {
	raw := rawFailure{kind: rawPayload}

	for _, key := range []string{"status", "statusCode", "status_code"} {
		if n, ok := numericValue(m[key]); ok {
			raw.status = n
			break
		}
	}
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := m[key].(string); ok && s != "" {
			raw.message = s
			break
		}
	}
	if s, ok := m["detail"].(string); ok {
		raw.detail = s
	}
	raw.fields = extractFieldErrors(m)
	return raw
}

// extractFieldErrors normalizes the three validation payload shapes the
// book API is known to produce into one flat field->message map:
//
//	{"errors": {"field": "msg"}}
//	{"fieldErrors": {"field": "msg"}}
//	{"validationErrors": [{"field": ..., "message": ...}]}
func extractFieldErrors(m map[string]any) map[string]string {
	out := make(map[string]string)

	for _, key := range []string{"errors", "fieldErrors"} {
		if fields, ok := m[key].(map[string]any); ok {
			for name, msg := range fields {
				out[name] = fmt.Sprint(msg)
			}
		}
		if fields, ok := m[key].(map[string]string); ok {
			for name, msg := range fields {
				out[name] = msg
			}
		}
	}

	if list, ok := m["validationErrors"].([]any); ok {
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			field, _ := entry["field"].(string)
			msg, _ := entry["message"].(string)
			if field != "" {
				out[field] = msg
			}
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func numericValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"fetch failed",
	"request aborted",
	"dns",
}

// isNetworkFailure reports whether the failure happened at the transport
// layer, before any HTTP response arrived. Timed-out transport errors
// are excluded: every timeout, whether it hit the dialer or the HTTP
// client, belongs to the timeout rule so it carries the longer delay
// hint for an overloaded server.
func isNetworkFailure(raw rawFailure) bool {
	if raw.status != 0 {
		return false
	}
	var netErr *NetworkError
	if raw.err != nil && stderrors.As(raw.err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if raw.err != nil && stderrors.As(raw.err, &opErr) {
		return !opErr.Timeout()
	}
	msg := strings.ToLower(raw.message)
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var timeoutPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
}

func isTimeoutFailure(raw rawFailure) bool {
	if raw.err != nil {
		var toErr *TimeoutError
		if stderrors.As(raw.err, &toErr) {
			return true
		}
		if stderrors.Is(raw.err, context.DeadlineExceeded) {
			return true
		}
		var netErr net.Error
		if stderrors.As(raw.err, &netErr) && netErr.Timeout() {
			return true
		}
	}
	msg := strings.ToLower(raw.message)
	for _, p := range timeoutPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
