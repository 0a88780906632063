/*
Package autosave provides the resilience core of the auto-author client:
retrying saves and fetches against the book API, notifying the user on
terminal failures, and backing up unsaved chapter content locally so a
flaky connection never silently loses work.

# Overview

The package wires three layers together:

  - errors: classifies any raw failure and runs operations under a
    bounded, exponentially backed-off retry budget
  - notify: maps terminal failures to user-visible notifications
  - backup: keeps one durable local snapshot per (book, chapter) key

A Saver runs one logical save through that pipeline. A Debouncer
collapses rapid editor keystrokes into one save per idle window. On the
next editor mount, a Coordinator checks for a leftover backup and offers
the user a restore-or-dismiss decision.

# Basic Usage

	storage, _ := backup.NewSQLiteStorage("autosave-backups.db")
	backups := backup.NewStore(storage)
	dispatcher := notify.NewDispatcher(showToast)

	saver := autosave.NewSaver(backups, dispatcher)
	outcome := saver.Save(ctx, bookID, chapterID, content, putChapter)
	if outcome.Err != nil {
	    // one toast already shown; outcome.InlineMessage is the
	    // editor-local message, and outcome.BackedUp says whether a
	    // local snapshot exists
	}

Transient failures (network blips, 502/503/504, timeouts) and
rate-limited AI calls (429) are retried silently with exponential
backoff. Validation, auth, and server faults surface immediately.

# Recovery

	coord := autosave.NewCoordinator(backups, saver, editor,
	    bookID, chapterID, putChapter)
	if coord.Mount() == autosave.StatePendingDecision {
	    // show the recovery prompt, then either:
	    coord.Restore(ctx) // put the snapshot back and re-save
	    coord.Dismiss()    // drop the snapshot
	}
*/
package autosave
