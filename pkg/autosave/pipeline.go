package autosave

import (
	"fmt"
	"log/slog"

	"github.com/frankbria/auto-author-sub012/pkg/autosave/backup"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/config"
	"github.com/frankbria/auto-author-sub012/pkg/autosave/notify"
)

// Pipeline is the fully assembled autosave stack, built from resolved
// settings: a durable backup store, a Saver with the configured retry
// budget, and debouncing/cleanup bound to the same tuning.
type Pipeline struct {
	Saver    *Saver
	Backups  *backup.Store
	Settings config.Settings

	storage   backup.Storage
	logger    *slog.Logger
	saverOpts []SaverOption
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger used across the pipeline.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithPipelineStorage replaces the SQLite backend opened at
// Settings.BackupPath. Tests use it to run against MemoryStorage.
func WithPipelineStorage(storage backup.Storage) PipelineOption {
	return func(p *Pipeline) {
		p.storage = storage
	}
}

// WithPipelineSaverOptions appends extra options to the constructed
// Saver, after the settings-derived ones.
func WithPipelineSaverOptions(opts ...SaverOption) PipelineOption {
	return func(p *Pipeline) {
		p.saverOpts = append(p.saverOpts, opts...)
	}
}

// NewPipeline builds the autosave stack from settings. Unless a storage
// backend is injected, it opens the SQLite database at
// Settings.BackupPath. Close releases the storage.
func NewPipeline(settings config.Settings, sink notify.Sink, opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{
		Settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.storage == nil {
		storage, err := backup.NewSQLiteStorage(settings.BackupPath)
		if err != nil {
			return nil, fmt.Errorf("open backup storage: %w", err)
		}
		p.storage = storage
	}

	p.Backups = backup.NewStore(p.storage, backup.WithLogger(p.logger))
	saverOpts := append([]SaverOption{
		WithRetryConfig(settings.Retry),
		WithLogger(p.logger),
	}, p.saverOpts...)
	p.Saver = NewSaver(p.Backups,
		notify.NewDispatcher(sink, notify.WithLogger(p.logger)),
		saverOpts...,
	)
	return p, nil
}

// NewDebouncer returns a debouncer firing after the configured idle
// window.
func (p *Pipeline) NewDebouncer(fire func(content string)) *Debouncer {
	return NewDebouncer(p.Settings.DebounceWindow, fire)
}

// Cleanup sweeps backups older than the configured TTL.
func (p *Pipeline) Cleanup() backup.CleanupResult {
	return p.Backups.Cleanup(p.Settings.BackupTTLDays)
}

// Close releases the backing storage.
func (p *Pipeline) Close() error {
	return p.storage.Close()
}
