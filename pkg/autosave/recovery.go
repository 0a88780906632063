package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/frankbria/auto-author-sub012/pkg/autosave/backup"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/observability"
)

// State tracks a Coordinator through its recovery decision.
type State int

const (
	// StateNoBackup means mount found nothing; the coordinator is a
	// no-op and no prompt is shown.
	StateNoBackup State = iota

	// StatePendingDecision means a backup was found and the user must
	// choose Restore or Dismiss.
	StatePendingDecision

	// StateResolved means the decision is made. There is no way back to
	// StatePendingDecision without a fresh save failure creating a new
	// backup and a fresh mount.
	StateResolved
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNoBackup:
		return "no_backup"
	case StatePendingDecision:
		return "pending_decision"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Editor is the surface the coordinator needs from the hosting editor
// component: read the current content, replace it on restore. CharCount
// is display-only.
type Editor interface {
	Content() string
	SetContent(content string)
	CharCount() int
}

// ErrNoPendingBackup is returned when Restore or Dismiss is called
// outside StatePendingDecision.
var ErrNoPendingBackup = errors.New("no pending backup decision")

// Coordinator checks for a leftover backup when an editor mounts and
// walks the user through the restore-or-dismiss decision.
type Coordinator struct {
	backups   *backup.Store
	saver     *Saver
	editor    Editor
	saveFn    SaveFunc
	bookID    string
	chapterID string
	logger    *slog.Logger
	metrics   observability.MetricsRecorder

	mu      sync.Mutex
	state   State
	pending *backup.ChapterBackup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithCoordinatorMetrics sets the metrics recorder.
func WithCoordinatorMetrics(m observability.MetricsRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates a recovery coordinator for one editor mount.
func NewCoordinator(
	backups *backup.Store,
	saver *Saver,
	editor Editor,
	bookID, chapterID string,
	saveFn SaveFunc,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		backups:   backups,
		saver:     saver,
		editor:    editor,
		saveFn:    saveFn,
		bookID:    bookID,
		chapterID: chapterID,
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		state:     StateNoBackup,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount checks the backup store for this chapter. Finding a valid
// backup moves the coordinator to StatePendingDecision; otherwise it
// stays a no-op.
func (c *Coordinator) Mount() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.backups.Load(c.bookID, c.chapterID)
	if b == nil {
		c.state = StateNoBackup
		return c.state
	}

	c.pending = b
	c.state = StatePendingDecision
	return c.state
}

// State returns the current recovery state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the backup awaiting a decision, nil otherwise.
func (c *Coordinator) Pending() *backup.ChapterBackup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePendingDecision {
		return nil
	}
	return c.pending
}

// Restore replaces the editor content with the backup, clears it, and
// pushes the restored content through the normal save pipeline with a
// fresh retry budget. The backup is consumed even if the follow-up save
// fails again; that failure writes a new backup through the Saver.
func (c *Coordinator) Restore(ctx context.Context) (SaveOutcome, error) {
	c.mu.Lock()
	if c.state != StatePendingDecision {
		c.mu.Unlock()
		return SaveOutcome{}, ErrNoPendingBackup
	}
	b := c.pending
	c.pending = nil
	c.state = StateResolved
	c.mu.Unlock()

	ctx, span := observability.StartRecoverySpan(ctx, c.bookID, c.chapterID)
	defer span.End()

	c.editor.SetContent(b.Content)
	observability.AddSpanEvent(ctx, "editor.content.replaced",
		attribute.Int("chars", c.editor.CharCount()))
	c.backups.Clear(c.bookID, c.chapterID)
	c.metrics.RecordRecovery(ctx, true)
	observability.LogBackupRestored(
		observability.EnrichLogger(c.logger, c.bookID, c.chapterID),
		backup.Key(c.bookID, c.chapterID),
		b.Age(time.Now()),
	)

	outcome := c.saver.Save(ctx, c.bookID, c.chapterID, b.Content, c.saveFn)
	return outcome, nil
}

// Dismiss clears the backup without touching the editor.
func (c *Coordinator) Dismiss() error {
	c.mu.Lock()
	if c.state != StatePendingDecision {
		c.mu.Unlock()
		return ErrNoPendingBackup
	}
	c.pending = nil
	c.state = StateResolved
	c.mu.Unlock()

	c.backups.Clear(c.bookID, c.chapterID)
	c.metrics.RecordRecovery(context.Background(), false)
	observability.LogBackupDismissed(
		observability.EnrichLogger(c.logger, c.bookID, c.chapterID),
		backup.Key(c.bookID, c.chapterID),
	)
	return nil
}
