package autosave_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/frankbria/auto-author-sub012/pkg/autosave"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/backup"
	saverrors "github.com/frankbria/auto-author-sub012/pkg/autosave/errors"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sinkRecorder collects dispatched notifications.
type sinkRecorder struct {
	mu    sync.Mutex
	calls []notify.Notification
}

func (r *sinkRecorder) sink(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, n)
}

func (r *sinkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *sinkRecorder) last() notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

// fastExecutor returns an executor whose waits complete instantly.
func fastExecutor() *saverrors.Executor {
	return saverrors.NewExecutor(saverrors.WithSleep(
		func(context.Context, time.Duration) error { return nil },
	))
}

type fixture struct {
	saver   *autosave.Saver
	backups *backup.Store
	storage *backup.MemoryStorage
	sink    *sinkRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage := backup.NewMemoryStorage()
	t.Cleanup(func() { storage.Close() })

	backups := backup.NewStore(storage, backup.WithLogger(discardLogger()))
	sink := &sinkRecorder{}
	dispatcher := notify.NewDispatcher(sink.sink, notify.WithLogger(discardLogger()))

	saver := autosave.NewSaver(backups, dispatcher,
		autosave.WithExecutor(fastExecutor()),
		autosave.WithLogger(discardLogger()),
	)
	return &fixture{saver: saver, backups: backups, storage: storage, sink: sink}
}

func TestSaveSuccessFirstTry(t *testing.T) {
	f := newFixture(t)
	calls := 0

	outcome := f.saver.Save(context.Background(), "b1", "c1", "chapter text",
		func(context.Context, string) error {
			calls++
			return nil
		})

	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, f.sink.count(), "successful saves never notify")
	assert.False(t, outcome.BackedUp)
	assert.Empty(t, outcome.InlineMessage)
}

func TestSaveSuccessAfterTransientFailures(t *testing.T) {
	f := newFixture(t)
	calls := 0

	outcome := f.saver.Save(context.Background(), "b1", "c1", "chapter text",
		func(ctx context.Context, content string) error {
			calls++
			if calls < 3 {
				return &saverrors.NetworkError{Message: "connection reset"}
			}
			return nil
		})

	assert.NoError(t, outcome.Err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 0, f.sink.count(), "silently retried failures never notify")
	assert.Nil(t, f.backups.Load("b1", "c1"))
}

func TestSaveExhaustionNotifiesAndBacksUp(t *testing.T) {
	f := newFixture(t)
	original := &saverrors.TimeoutError{Operation: "save chapter", Duration: "30s"}
	calls := 0

	outcome := f.saver.Save(context.Background(), "b1", "c1", "unsaved words",
		func(context.Context, string) error {
			calls++
			return original
		})

	assert.Equal(t, 3, calls)
	assert.Same(t, error(original), outcome.Err, "terminal error keeps its identity")

	require.Equal(t, 1, f.sink.count(), "exactly one notification per terminal failure")
	assert.Equal(t, "Network Error", f.sink.last().Title)

	assert.True(t, outcome.BackedUp)
	assert.Equal(t, "Failed to auto-save. Content backed up locally.", outcome.InlineMessage)

	b := f.backups.Load("b1", "c1")
	require.NotNil(t, b)
	assert.Equal(t, "unsaved words", b.Content)
}

func TestSaveValidationFailureImmediate(t *testing.T) {
	f := newFixture(t)
	calls := 0

	outcome := f.saver.Save(context.Background(), "b1", "c1", "text",
		func(context.Context, string) error {
			calls++
			return &saverrors.APIError{StatusCode: 400, Message: "Invalid input"}
		})

	assert.Equal(t, 1, calls, "permanent failures are not retried")
	require.Equal(t, 1, f.sink.count())
	assert.Equal(t, "Validation Error", f.sink.last().Title)
	assert.Equal(t, "Invalid input", f.sink.last().Description)
	assert.True(t, outcome.BackedUp, "even immediate failures back up the content")
}

func TestSaveSuccessClearsPriorBackup(t *testing.T) {
	f := newFixture(t)

	// Leave a failed-save backup behind, then succeed.
	f.saver.Save(context.Background(), "b1", "c1", "draft v1",
		func(context.Context, string) error {
			return &saverrors.NetworkError{Message: "connection refused"}
		})
	require.NotNil(t, f.backups.Load("b1", "c1"))

	outcome := f.saver.Save(context.Background(), "b1", "c1", "draft v2",
		func(context.Context, string) error { return nil })

	assert.NoError(t, outcome.Err)
	assert.Nil(t, f.backups.Load("b1", "c1"), "a later successful save destroys the backup")
}

func TestSaveBackupFailureStillReportsInline(t *testing.T) {
	storage := backup.NewMemoryStorage(backup.WithQuota(1))
	defer storage.Close()
	backups := backup.NewStore(storage, backup.WithLogger(discardLogger()))
	sink := &sinkRecorder{}
	saver := autosave.NewSaver(backups,
		notify.NewDispatcher(sink.sink, notify.WithLogger(discardLogger())),
		autosave.WithExecutor(fastExecutor()),
		autosave.WithLogger(discardLogger()),
	)

	outcome := saver.Save(context.Background(), "b1", "c1", "content bigger than quota",
		func(context.Context, string) error {
			return &saverrors.NetworkError{Message: "connection refused"}
		})

	assert.Error(t, outcome.Err)
	assert.False(t, outcome.BackedUp)
	assert.NotEmpty(t, outcome.InlineMessage, "the user still gets an in-UI message")
	assert.Equal(t, 1, sink.count())
}

func TestSaveBackupsIsolatedPerChapter(t *testing.T) {
	f := newFixture(t)
	fail := func(context.Context, string) error {
		return &saverrors.NetworkError{Message: "connection refused"}
	}

	f.saver.Save(context.Background(), "book-1", "chapter-1", "first", fail)
	f.saver.Save(context.Background(), "book-1", "chapter-2", "second", fail)

	b1 := f.backups.Load("book-1", "chapter-1")
	b2 := f.backups.Load("book-1", "chapter-2")
	require.NotNil(t, b1)
	require.NotNil(t, b2)
	assert.Equal(t, "first", b1.Content)
	assert.Equal(t, "second", b2.Content)
}

func TestFetch(t *testing.T) {
	t.Run("success after retries", func(t *testing.T) {
		f := newFixture(t)
		calls := 0

		toc, err := autosave.Fetch(context.Background(), f.saver,
			func(context.Context) ([]string, error) {
				calls++
				if calls < 2 {
					return nil, &saverrors.APIError{StatusCode: 503, Message: "unavailable"}
				}
				return []string{"Chapter One", "Chapter Two"}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"Chapter One", "Chapter Two"}, toc)
		assert.Equal(t, 0, f.sink.count())
	})

	t.Run("terminal failure notifies without backup", func(t *testing.T) {
		f := newFixture(t)
		original := &saverrors.APIError{StatusCode: 500, Message: "boom"}

		_, err := autosave.Fetch(context.Background(), f.saver,
			func(context.Context) (string, error) {
				return "", original
			})

		assert.Same(t, error(original), err)
		assert.Equal(t, 1, f.sink.count())
		assert.Equal(t, "Server Error", f.sink.last().Title)
		assert.NotEmpty(t, f.sink.last().CorrelationID)
		assert.Equal(t, 0, f.storage.Len(), "fetches never write backups")
	})
}
