package autosave_test

import (
	"sync"
	"testing"
	"time"

	"github.com/frankbria/auto-author-sub012/pkg/autosave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fireRecorder collects debounced fires.
type fireRecorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan string, 16)}
}

func (r *fireRecorder) fire(content string) {
	r.mu.Lock()
	r.fired = append(r.fired, content)
	r.mu.Unlock()
	r.ch <- content
}

func (r *fireRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.fired))
	copy(out, r.fired)
	return out
}

func (r *fireRecorder) waitOne(t *testing.T) string {
	t.Helper()
	select {
	case content := <-r.ch:
		return content
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
		return ""
	}
}

func TestDebouncerCollapsesRapidEdits(t *testing.T) {
	rec := newFireRecorder()
	d := autosave.NewDebouncer(30*time.Millisecond, rec.fire)
	defer d.Stop()

	d.Trigger("draft v1")
	d.Trigger("draft v2")
	d.Trigger("draft v3")

	got := rec.waitOne(t)
	assert.Equal(t, "draft v3", got, "only the latest content fires")
	assert.Equal(t, []string{"draft v3"}, rec.all())
}

func TestDebouncerFiresAgainAfterQuiet(t *testing.T) {
	rec := newFireRecorder()
	d := autosave.NewDebouncer(20*time.Millisecond, rec.fire)
	defer d.Stop()

	d.Trigger("first burst")
	assert.Equal(t, "first burst", rec.waitOne(t))

	d.Trigger("second burst")
	assert.Equal(t, "second burst", rec.waitOne(t))
}

func TestDebouncerFlush(t *testing.T) {
	rec := newFireRecorder()
	d := autosave.NewDebouncer(time.Hour, rec.fire)
	defer d.Stop()

	d.Trigger("pending edit")
	d.Flush()

	assert.Equal(t, []string{"pending edit"}, rec.all(), "flush fires immediately")
}

func TestDebouncerFlushWithoutPending(t *testing.T) {
	rec := newFireRecorder()
	d := autosave.NewDebouncer(time.Hour, rec.fire)
	defer d.Stop()

	d.Flush()

	assert.Empty(t, rec.all(), "nothing pending means nothing fires")
}

func TestDebouncerStopDropsPending(t *testing.T) {
	rec := newFireRecorder()
	d := autosave.NewDebouncer(30*time.Millisecond, rec.fire)

	d.Trigger("abandoned edit")
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.all(), "stop cancels the pending fire")

	d.Trigger("after stop")
	d.Flush()
	assert.Empty(t, rec.all(), "a stopped debouncer ignores further triggers")
}

func TestDebouncerDefaultWindow(t *testing.T) {
	rec := newFireRecorder()
	d := autosave.NewDebouncer(0, rec.fire)
	defer d.Stop()

	require.Equal(t, 3*time.Second, autosave.DefaultDebounceWindow)

	// The window defaulted, so nothing fires promptly.
	d.Trigger("slow edit")
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, rec.all())

	d.Flush()
	assert.Equal(t, []string{"slow edit"}, rec.all())
}
