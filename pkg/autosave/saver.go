package autosave

import (
	"context"
	"log/slog"
	"time"

	"github.com/frankbria/auto-author-sub012/pkg/autosave/backup"
	saverrors "github.com/frankbria/auto-author-sub012/pkg/autosave/errors"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/notify"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/observability"
)

// Inline messages shown in the editor itself, separate from the toast.
const (
	msgBackedUp = "Failed to auto-save. Content backed up locally."
	msgNoBackup = "Failed to auto-save. Copy your work somewhere safe before leaving."
)

// SaveFunc performs the actual save against the book API. The content
// to persist is bound by the caller; the function is treated as opaque.
type SaveFunc func(ctx context.Context, content string) error

// SaveOutcome reports the terminal result of one logical save.
type SaveOutcome struct {
	// Err is the original terminal error, nil when the save succeeded
	// (possibly after silent retries).
	Err error

	// Classified is the triaged form of Err, nil on success.
	Classified *saverrors.ClassifiedError

	// Attempts is how many attempts ran.
	Attempts int

	// BackedUp reports whether a local snapshot was written.
	BackedUp bool

	// InlineMessage is the editor-local message to show alongside the
	// toast, empty on success.
	InlineMessage string
}

// Saver runs save and fetch operations through the retry, notification,
// and backup pipeline. Each call owns its own retry loop; a Saver holds
// no per-call state and is safe for concurrent use.
type Saver struct {
	backups    *backup.Store
	dispatcher *notify.Dispatcher
	exec       *saverrors.Executor
	retry      saverrors.RetryConfig
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithRetryConfig sets the retry budget for every operation.
func WithRetryConfig(cfg saverrors.RetryConfig) SaverOption {
	return func(s *Saver) {
		s.retry = cfg
	}
}

// WithExecutor replaces the retry executor, mainly so tests can inject
// a fake sleep.
func WithExecutor(e *saverrors.Executor) SaverOption {
	return func(s *Saver) {
		s.exec = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SaverOption {
	return func(s *Saver) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) SaverOption {
	return func(s *Saver) {
		s.metrics = m
	}
}

// NewSaver creates a Saver over the given backup store and dispatcher.
func NewSaver(backups *backup.Store, dispatcher *notify.Dispatcher, opts ...SaverOption) *Saver {
	s := &Saver{
		backups:    backups,
		dispatcher: dispatcher,
		exec:       saverrors.NewExecutor(),
		retry:      saverrors.DefaultRetry,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save runs one logical save for the chapter. Transient failures are
// retried silently. On terminal failure it dispatches exactly one
// notification, writes a local backup of the unsaved content, and
// returns the original error in the outcome. On success any leftover
// backup for the key is cleared.
func (s *Saver) Save(ctx context.Context, bookID, chapterID, content string, fn SaveFunc) SaveOutcome {
	ctx, span := observability.StartSaveSpan(ctx, bookID, chapterID)
	logger := observability.EnrichLogger(s.logger, bookID, chapterID)

	exec := s.exec.WithHook(func(ctx context.Context, attempt int, delay time.Duration, ce *saverrors.ClassifiedError) {
		observability.LogRetryAttempt(logger, attempt, delay, ce)
		s.metrics.RecordRetry(ctx, ce.Type.String())
	})
	result := saverrors.ExecuteWith(ctx, exec, s.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx, content)
	})
	s.metrics.RecordSave(ctx, result.Attempts, result.Duration, result.Err)
	observability.EndSpanWithError(span, result.Err)

	if result.Err == nil {
		// A successful save supersedes any earlier failed snapshot.
		s.backups.Clear(bookID, chapterID)
		return SaveOutcome{Attempts: result.Attempts}
	}

	ce := result.Classified
	observability.LogSaveFailure(logger, ce.CorrelationID, result.Attempts, result.Err)
	s.dispatcher.Dispatch(ce)

	backedUp := s.backups.Save(bookID, chapterID, content, ce.Details)
	inline := msgNoBackup
	if backedUp {
		inline = msgBackedUp
		s.metrics.RecordBackup(ctx, int64(len(content)))
		observability.LogBackupSaved(logger, backup.Key(bookID, chapterID), len(content))
	}

	return SaveOutcome{
		Err:           result.Err,
		Classified:    ce,
		Attempts:      result.Attempts,
		BackedUp:      backedUp,
		InlineMessage: inline,
	}
}

// Fetch runs a read operation under the saver's retry budget. Terminal
// failures dispatch one notification; fetches carry no unsaved content,
// so nothing is backed up. The returned error is the original failure.
func Fetch[T any](ctx context.Context, s *Saver, fn func(context.Context) (T, error)) (T, error) {
	exec := s.exec.WithHook(func(ctx context.Context, attempt int, delay time.Duration, ce *saverrors.ClassifiedError) {
		observability.LogRetryAttempt(s.logger, attempt, delay, ce)
		s.metrics.RecordRetry(ctx, ce.Type.String())
	})
	result := saverrors.ExecuteWith(ctx, exec, s.retry, fn)
	if result.Err == nil {
		return result.Value, nil
	}

	s.dispatcher.Dispatch(result.Classified)
	return result.Value, result.Err
}
