package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frankbria/auto-author-sub012/pkg/autosave/observability"
)

// KeyPrefix namespaces all backup keys in the shared storage.
const KeyPrefix = "chapter-backup-"

// DefaultTTLDays is how long an unclaimed backup survives before the
// cleanup sweep removes it.
const DefaultTTLDays = 7

// clockSkewAllowance tolerates timestamps slightly in the future from
// machines whose clocks drift.
const clockSkewAllowance = 60 * time.Second

const millisPerDay = 24 * 60 * 60 * 1000

// Key derives the storage key for one chapter's backup. Distinct
// (book, chapter) pairs never collide.
func Key(bookID, chapterID string) string {
	return fmt.Sprintf("%s%s-%s", KeyPrefix, bookID, chapterID)
}

// ChapterBackup is a snapshot of unsaved chapter content, written when a
// save operation fails after exhausting its retries.
type ChapterBackup struct {
	// Content is the unsaved chapter text.
	Content string `json:"content"`

	// Timestamp is the creation time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Error records why the save failed, when known.
	Error string `json:"error,omitempty"`
}

// Age returns how old the backup is relative to now.
func (b *ChapterBackup) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(b.Timestamp))
}

// Store validates, persists, retrieves, and expires chapter backups.
// At most one backup exists per (book, chapter) key; a newer failed
// save overwrites the previous snapshot.
type Store struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger. Storage failures are logged, not raised.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock sets the time source, substitutable in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a backup store over the given storage.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a snapshot for the chapter, overwriting any previous
// one. Returns false when the underlying storage rejects the write
// (for example on quota exhaustion); the failure is logged so callers
// can fall back to an in-UI message without a backup.
func (s *Store) Save(bookID, chapterID, content, errMessage string) bool {
	b := ChapterBackup{
		Content:   content,
		Timestamp: s.now().UnixMilli(),
		Error:     errMessage,
	}

	data, err := json.Marshal(b)
	if err != nil {
		s.logger.Warn("backup serialization failed",
			slog.String("book_id", bookID),
			slog.String("chapter_id", chapterID),
			slog.String("error", err.Error()),
		)
		return false
	}

	key := Key(bookID, chapterID)
	if err := s.storage.Set(key, string(data)); err != nil {
		s.logger.Warn("backup write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Load retrieves the chapter's backup. Returns nil when no backup
// exists, when the stored JSON doesn't parse, or when it fails
// structural validation. Corrupt entries are treated as absent and left
// in place; removing them is the cleanup sweep's job.
func (s *Store) Load(bookID, chapterID string) *ChapterBackup {
	key := Key(bookID, chapterID)
	raw, err := s.storage.Get(key)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Warn("backup read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	b, err := decodeBackup(raw, s.now())
	if err != nil {
		s.logger.Warn("discarding invalid backup",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return b
}

// Clear removes the chapter's backup unconditionally.
func (s *Store) Clear(bookID, chapterID string) {
	key := Key(bookID, chapterID)
	if err := s.storage.Delete(key); err != nil {
		s.logger.Warn("backup delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// IsExpired reports whether a backup timestamp (epoch ms) has outlived
// the TTL.
func (s *Store) IsExpired(timestampMs int64, ttlDays int) bool {
	return s.now().UnixMilli()-timestampMs > int64(ttlDays)*millisPerDay
}

// CleanupResult reports the outcome of a cleanup sweep.
type CleanupResult struct {
	// Removed lists keys deleted because they were expired or invalid.
	Removed []string

	// Errors lists keys that could not be processed.
	Errors []string
}

// Cleanup scans every backup-namespaced key and removes entries that are
// expired or structurally invalid. A failure on one key never stops the
// sweep.
func (s *Store) Cleanup(ttlDays int) CleanupResult {
	var result CleanupResult

	keys, err := s.storage.Keys(KeyPrefix)
	if err != nil {
		s.logger.Warn("backup cleanup scan failed", slog.String("error", err.Error()))
		result.Errors = append(result.Errors, KeyPrefix+"*")
		return result
	}

	for _, key := range keys {
		raw, err := s.storage.Get(key)
		if err != nil {
			result.Errors = append(result.Errors, key)
			continue
		}

		b, decodeErr := decodeBackup(raw, s.now())
		expired := decodeErr == nil && s.IsExpired(b.Timestamp, ttlDays)
		if decodeErr == nil && !expired {
			continue
		}

		if err := s.storage.Delete(key); err != nil {
			result.Errors = append(result.Errors, key)
			continue
		}
		result.Removed = append(result.Removed, key)
	}

	observability.LogCleanupSweep(s.logger, len(result.Removed), len(result.Errors))
	return result
}

// decodeBackup parses and validates a stored backup. Validation goes
// through a loose map so wrong-typed fields are rejected instead of
// silently coerced.
func decodeBackup(raw string, now time.Time) (*ChapterBackup, error) {
	var loose map[string]any
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	content, ok := loose["content"].(string)
	if !ok {
		return nil, fmt.Errorf("backup content is not a string")
	}
	if content == "" {
		return nil, fmt.Errorf("backup content is empty")
	}

	tsRaw, ok := loose["timestamp"].(float64)
	if !ok {
		return nil, fmt.Errorf("backup timestamp is not a number")
	}
	ts := int64(tsRaw)
	if ts < 0 {
		return nil, fmt.Errorf("backup timestamp is negative")
	}
	if ts > now.Add(clockSkewAllowance).UnixMilli() {
		return nil, fmt.Errorf("backup timestamp is in the future")
	}

	b := &ChapterBackup{Content: content, Timestamp: ts}
	if errRaw, present := loose["error"]; present {
		errStr, ok := errRaw.(string)
		if !ok {
			return nil, fmt.Errorf("backup error field is not a string")
		}
		b.Error = errStr
	}
	return b, nil
}
