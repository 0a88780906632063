package errors

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior for one executor invocation.
// It is constructed once per call and never mutated during execution.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Exponential doubles the delay after each retry when true;
	// otherwise every wait uses BaseDelay.
	Exponential bool
}

// DefaultRetry is the standard retry configuration.
var DefaultRetry = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    30 * time.Second,
	Exponential: true,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
	BaseDelay:   1 * time.Second,
	MaxDelay:    30 * time.Second,
}

// RetryOption configures a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxAttempts = n
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.BaseDelay = d
	}
}

// WithMaxDelay sets the backoff ceiling.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxDelay = d
	}
}

// WithExponential toggles exponential growth.
func WithExponential(on bool) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.Exponential = on
	}
}

// NewRetryConfig creates a retry configuration from DefaultRetry and the
// given options.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Backoff returns the wait before retry number attempt (zero-based):
// min(base * 2^attempt, max). No jitter: delays are exact and
// deterministic.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// ShouldRetry decides whether another attempt is allowed. Only transient
// failures and rate-limited AI service responses (429) are retryable;
// permanent, system, and unknown failures never are.
func ShouldRetry(t ErrorType, statusCode, attempt, maxAttempts int) bool {
	if attempt >= maxAttempts {
		return false
	}
	switch t {
	case TypeTransient:
		return true
	case TypeAIService:
		return statusCode == 429
	default:
		return false
	}
}

// Result contains the outcome of an executed operation.
type Result[T any] struct {
	// Value is the result if the operation eventually succeeded.
	Value T

	// Err is the final error if all attempts failed. It is the original
	// error returned by the operation, not a wrapper, so identity
	// comparisons against the observed failure still hold.
	Err error

	// Classified is the triaged form of Err, nil on success.
	Classified *ClassifiedError

	// Attempts is the number of attempts made.
	Attempts int

	// Duration is the total time spent, including waits.
	Duration time.Duration
}

// RetryHook observes one silently retried failure just before the
// backoff wait. attempt is the attempt that failed, starting at 1.
type RetryHook func(ctx context.Context, attempt int, delay time.Duration, ce *ClassifiedError)

// Executor runs operations under a retry budget. The zero value is not
// usable; use NewExecutor.
type Executor struct {
	classifier *Classifier
	sleep      func(context.Context, time.Duration) error
	onRetry    RetryHook
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClassifier sets the classifier used to triage failures.
func WithClassifier(c *Classifier) ExecutorOption {
	return func(e *Executor) {
		e.classifier = c
	}
}

// WithSleep replaces the wait function. Tests substitute a recording
// fake so backoff sequences can be asserted without real delays.
func WithSleep(fn func(context.Context, time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// WithOnRetry sets a hook observing each silently retried failure.
func WithOnRetry(fn RetryHook) ExecutorOption {
	return func(e *Executor) {
		e.onRetry = fn
	}
}

// NewExecutor creates an executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		classifier: defaultClassifier,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithHook returns a copy of the executor with the given retry hook.
// Callers use it to attach per-call logging without mutating a shared
// executor.
func (e *Executor) WithHook(fn RetryHook) *Executor {
	derived := *e
	derived.onRetry = fn
	return &derived
}

var defaultExecutor = NewExecutor()

// Execute runs fn under the default executor and configuration.
func Execute[T any](ctx context.Context, fn func(context.Context) (T, error)) Result[T] {
	return ExecuteWith(ctx, defaultExecutor, DefaultRetry, fn)
}

// ExecuteWith runs fn under the given executor and retry configuration.
//
// Attempts are strictly sequential. After each failure the error is
// classified; if the classification is retryable and the attempt budget
// allows, the executor waits the full backoff delay and tries again.
// Non-retryable failures return immediately with no delay. Intermediate
// failures are never surfaced; only the terminal outcome is.
func ExecuteWith[T any](
	ctx context.Context,
	e *Executor,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) Result[T] {
	start := time.Now()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	var lastClassified *ClassifiedError
	attempts := 0

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T]{
				Err:        err,
				Classified: e.classifier.Classify(err),
				Attempts:   attempts,
				Duration:   time.Since(start),
			}
		}

		value, err := fn(ctx)
		attempts++
		if err == nil {
			return Result[T]{
				Value:    value,
				Attempts: attempts,
				Duration: time.Since(start),
			}
		}

		lastErr = err
		lastClassified = e.classifier.Classify(err)

		if !ShouldRetry(lastClassified.Type, lastClassified.StatusCode, attempts, cfg.MaxAttempts) {
			break
		}

		base := cfg.BaseDelay
		if lastClassified.DelayHint > 0 {
			base = lastClassified.DelayHint
		}
		delay := base
		if cfg.Exponential {
			delay = Backoff(attempt, base, cfg.MaxDelay)
		} else if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		if e.onRetry != nil {
			e.onRetry(ctx, attempts, delay, lastClassified)
		}

		if err := e.sleep(ctx, delay); err != nil {
			return Result[T]{
				Err:        err,
				Classified: e.classifier.Classify(err),
				Attempts:   attempts,
				Duration:   time.Since(start),
			}
		}
	}

	return Result[T]{
		Err:        lastErr,
		Classified: lastClassified,
		Attempts:   attempts,
		Duration:   time.Since(start),
	}
}
