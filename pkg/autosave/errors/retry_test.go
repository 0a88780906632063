package errors

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSleeper records requested delays without waiting.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func TestBackoffExactValues(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1000 * time.Millisecond},
		{1, 2000 * time.Millisecond},
		{2, 4000 * time.Millisecond},
		{3, 8000 * time.Millisecond},
		{4, 16000 * time.Millisecond},
		{5, 30000 * time.Millisecond},
		{10, 30000 * time.Millisecond},
	}

	for _, tt := range tests {
		got := Backoff(tt.attempt, time.Second, 30*time.Second)
		if got != tt.expected {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestBackoffNegativeAttempt(t *testing.T) {
	if got := Backoff(-1, time.Second, 30*time.Second); got != time.Second {
		t.Errorf("Backoff(-1) = %v, want base delay", got)
	}
}

func TestShouldRetry(t *testing.T) {
	t.Run("non-retryable types never retry", func(t *testing.T) {
		for _, errType := range []ErrorType{TypePermanent, TypeSystem, TypeUnknown} {
			for _, count := range []int{0, 1, 2, 100} {
				if ShouldRetry(errType, 0, count, 3) {
					t.Errorf("ShouldRetry(%s, count=%d) = true, want false", errType, count)
				}
			}
		}
	})

	t.Run("transient retries under budget", func(t *testing.T) {
		for count := 0; count < 3; count++ {
			if !ShouldRetry(TypeTransient, 0, count, 3) {
				t.Errorf("ShouldRetry(transient, count=%d) = false, want true", count)
			}
		}
	})

	t.Run("transient stops at budget", func(t *testing.T) {
		if ShouldRetry(TypeTransient, 0, 3, 3) {
			t.Error("ShouldRetry(transient, count=3, max=3) = true, want false")
		}
		if ShouldRetry(TypeTransient, 0, 4, 3) {
			t.Error("ShouldRetry(transient, count=4, max=3) = true, want false")
		}
	})

	t.Run("rate-limited AI service retries", func(t *testing.T) {
		if !ShouldRetry(TypeAIService, 429, 1, 3) {
			t.Error("429 should retry under budget")
		}
		if ShouldRetry(TypeAIService, 400, 1, 3) {
			t.Error("AI service without 429 should not retry")
		}
	})
}

func TestExecuteExhaustion(t *testing.T) {
	// An operation that always fails with a timeout-style transport
	// error runs exactly MaxAttempts times; the delays between attempts
	// follow the exponential schedule and the terminal error is the
	// original object.
	sleeper := &fakeSleeper{}
	e := NewExecutor(WithSleep(sleeper.sleep))
	original := &NetworkError{Op: "save", Message: "connection refused"}
	calls := 0

	result := ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (string, error) {
		calls++
		return "", original
	})

	require.Error(t, result.Err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)
	assert.Same(t, error(original), result.Err)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sleeper.delays)
	require.NotNil(t, result.Classified)
	assert.Equal(t, TypeTransient, result.Classified.Type)
}

func TestExecuteSuccessAfterRetry(t *testing.T) {
	sleeper := &fakeSleeper{}
	e := NewExecutor(WithSleep(sleeper.sleep))
	calls := 0

	result := ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (map[string]bool, error) {
		calls++
		if calls < 3 {
			return nil, &NetworkError{Message: "connection reset"}
		}
		return map[string]bool{"success": true}, nil
	})

	require.NoError(t, result.Err)
	assert.Nil(t, result.Classified)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)
	assert.True(t, result.Value["success"])
	assert.Len(t, sleeper.delays, 2)
}

func TestExecuteNonRetryableFailsImmediately(t *testing.T) {
	sleeper := &fakeSleeper{}
	e := NewExecutor(WithSleep(sleeper.sleep))
	original := &APIError{StatusCode: 400, Message: "Invalid input"}
	calls := 0

	result := ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, original
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, sleeper.delays, "non-retryable failures must not wait")
	assert.Same(t, error(original), result.Err)
	require.NotNil(t, result.Classified)
	assert.Equal(t, TypePermanent, result.Classified.Type)
	assert.Equal(t, "Invalid input", result.Classified.Message)
}

func TestExecuteTimeoutUsesLongerBaseDelay(t *testing.T) {
	sleeper := &fakeSleeper{}
	e := NewExecutor(WithSleep(sleeper.sleep))

	ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (struct{}, error) {
		return struct{}{}, &TimeoutError{Operation: "save", Duration: "30s"}
	})

	require.Len(t, sleeper.delays, 2)
	assert.Equal(t, 3*time.Second, sleeper.delays[0])
	assert.Equal(t, 6*time.Second, sleeper.delays[1])
}

func TestExecuteConstantDelayWhenNotExponential(t *testing.T) {
	sleeper := &fakeSleeper{}
	e := NewExecutor(WithSleep(sleeper.sleep))
	cfg := NewRetryConfig(WithMaxAttempts(4), WithExponential(false))

	ExecuteWith(context.Background(), e, cfg, func(context.Context) (struct{}, error) {
		return struct{}{}, &NetworkError{Message: "connection refused"}
	})

	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sleeper.delays)
}

func TestExecuteRateLimitRetries(t *testing.T) {
	sleeper := &fakeSleeper{}
	e := NewExecutor(WithSleep(sleeper.sleep))
	calls := 0

	result := ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &APIError{StatusCode: 429, Message: "rate limited"}
		}
		return "draft", nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "draft", result.Value)
}

func TestExecuteContextCancellation(t *testing.T) {
	t.Run("cancelled before first attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		result := Execute(ctx, func(context.Context) (struct{}, error) {
			calls++
			return struct{}{}, nil
		})

		assert.Equal(t, 0, calls)
		assert.ErrorIs(t, result.Err, context.Canceled)
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		e := NewExecutor(WithSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}))

		result := ExecuteWith(ctx, e, DefaultRetry, func(context.Context) (struct{}, error) {
			return struct{}{}, &NetworkError{Message: "connection refused"}
		})

		assert.Equal(t, 1, result.Attempts)
		assert.ErrorIs(t, result.Err, context.Canceled)
	})
}

func TestExecuteSingleAttemptConfig(t *testing.T) {
	calls := 0
	result := ExecuteWith(context.Background(), NewExecutor(), NoRetry, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, &NetworkError{Message: "connection refused"}
	})

	assert.Equal(t, 1, calls)
	require.Error(t, result.Err)
}

func TestNewRetryConfigOptions(t *testing.T) {
	cfg := NewRetryConfig(
		WithMaxAttempts(5),
		WithBaseDelay(500*time.Millisecond),
		WithMaxDelay(10*time.Second),
		WithExponential(true),
	)

	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxDelay)
	assert.True(t, cfg.Exponential)
}

func TestExecuteReturnsOriginalErrorIdentity(t *testing.T) {
	original := stderrors.New("quite specific failure")
	e := NewExecutor(WithSleep((&fakeSleeper{}).sleep))

	result := ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (struct{}, error) {
		return struct{}{}, original
	})

	// Unknown type: one attempt, and the exact error value comes back.
	if result.Err != original {
		t.Error("terminal error must be the original error value")
	}
}

func TestExecuteRetryHook(t *testing.T) {
	type hookCall struct {
		attempt int
		delay   time.Duration
		errType ErrorType
	}
	var calls []hookCall

	sleeper := &fakeSleeper{}
	e := NewExecutor(
		WithSleep(sleeper.sleep),
		WithOnRetry(func(_ context.Context, attempt int, delay time.Duration, ce *ClassifiedError) {
			calls = append(calls, hookCall{attempt, delay, ce.Type})
		}),
	)

	result := ExecuteWith(context.Background(), e, DefaultRetry, func(context.Context) (struct{}, error) {
		return struct{}{}, &NetworkError{Message: "connection reset"}
	})

	require.Error(t, result.Err)
	require.Len(t, calls, 2, "the hook fires once per retried failure, not for the terminal one")
	assert.Equal(t, hookCall{1, 1 * time.Second, TypeTransient}, calls[0])
	assert.Equal(t, hookCall{2, 2 * time.Second, TypeTransient}, calls[1])
}

func TestExecuteHookCopyLeavesBaseUntouched(t *testing.T) {
	sleeper := &fakeSleeper{}
	base := NewExecutor(WithSleep(sleeper.sleep))

	hooked := base.WithHook(func(context.Context, int, time.Duration, *ClassifiedError) {
		t.Error("base executor must not inherit the hook")
	})
	require.NotSame(t, base, hooked)

	result := ExecuteWith(context.Background(), base, NoRetry, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	assert.NoError(t, result.Err)
}
