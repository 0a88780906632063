package autosave

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the idle period before an edit fires a save.
const DefaultDebounceWindow = 3 * time.Second

// Debouncer collapses rapid-fire edits into one save per idle window.
// Every Trigger replaces the pending content, so the eventual fire
// always carries the most recent text. It schedules; the actual save
// pipeline lives in the Saver the fire callback invokes.
type Debouncer struct {
	window time.Duration
	fire   func(content string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	armed   bool
	stopped bool
}

// NewDebouncer creates a debouncer that calls fire with the latest
// content after window of idleness. A non-positive window uses
// DefaultDebounceWindow.
func NewDebouncer(window time.Duration, fire func(content string)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window: window,
		fire:   fire,
	}
}

// Trigger records the latest content and restarts the idle timer.
func (d *Debouncer) Trigger(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = content
	d.armed = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fireNow)
}

// Flush fires immediately if an edit is pending, cancelling the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fireNow()
}

// Stop cancels any pending fire. Further triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fireNow() {
	d.mu.Lock()
	if !d.armed || d.stopped {
		d.mu.Unlock()
		return
	}
	content := d.pending
	d.armed = false
	d.mu.Unlock()

	d.fire(content)
}
