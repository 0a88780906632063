// Package config resolves tuning settings for the autosave core from
// YAML or JSON files. Every knob has a default; a settings file only
// overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	saverrors "github.com/frankbria/auto-author-sub012/pkg/autosave/errors"
)

// Settings holds the resolved tuning for the autosave core.
type Settings struct {
	// Retry governs the save/fetch retry budget.
	Retry saverrors.RetryConfig

	// BackupTTLDays is how long unclaimed backups survive.
	BackupTTLDays int

	// BackupPath is the SQLite file backing the local backup store.
	BackupPath string

	// DebounceWindow is the idle period before an edit triggers a save.
	DebounceWindow time.Duration
}

// DefaultSettings returns the settings used when no file overrides them.
func DefaultSettings() Settings {
	return Settings{
		Retry:          saverrors.DefaultRetry,
		BackupTTLDays:  7,
		BackupPath:     "autosave-backups.db",
		DebounceWindow: 3 * time.Second,
	}
}

// fileSettings is the wire shape of a settings file. Pointer fields
// distinguish "absent, keep the default" from an explicit zero.
//
//	retry:
//	  max_attempts: 3
//	  base_delay: 1s
//	  max_delay: 30s
//	  exponential: true
//	backup:
//	  ttl_days: 7
//	  path: autosave-backups.db
//	debounce_window: 3s
type fileSettings struct {
	Retry struct {
		MaxAttempts *int      `yaml:"max_attempts" json:"max_attempts"`
		BaseDelay   *duration `yaml:"base_delay" json:"base_delay"`
		MaxDelay    *duration `yaml:"max_delay" json:"max_delay"`
		Exponential *bool     `yaml:"exponential" json:"exponential"`
	} `yaml:"retry" json:"retry"`
	Backup struct {
		TTLDays *int    `yaml:"ttl_days" json:"ttl_days"`
		Path    *string `yaml:"path" json:"path"`
	} `yaml:"backup" json:"backup"`
	DebounceWindow *duration `yaml:"debounce_window" json:"debounce_window"`
}

// Load reads and resolves settings from a file, detecting the format by
// extension. Supported extensions: .yaml, .yml, .json.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported settings file extension: %s", ext)
	}
}

// FromYAML resolves settings from YAML data.
func FromYAML(data []byte) (Settings, error) {
	var f fileSettings
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("parse yaml settings: %w", err)
	}
	return f.resolve()
}

// FromJSON resolves settings from JSON data.
func FromJSON(data []byte) (Settings, error) {
	var f fileSettings
	if err := json.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("parse json settings: %w", err)
	}
	return f.resolve()
}

// resolve overlays the file values onto the defaults and validates the
// result.
func (f fileSettings) resolve() (Settings, error) {
	s := DefaultSettings()

	if f.Retry.MaxAttempts != nil {
		s.Retry.MaxAttempts = *f.Retry.MaxAttempts
	}
	if f.Retry.BaseDelay != nil {
		s.Retry.BaseDelay = time.Duration(*f.Retry.BaseDelay)
	}
	if f.Retry.MaxDelay != nil {
		s.Retry.MaxDelay = time.Duration(*f.Retry.MaxDelay)
	}
	if f.Retry.Exponential != nil {
		s.Retry.Exponential = *f.Retry.Exponential
	}
	if f.Backup.TTLDays != nil {
		s.BackupTTLDays = *f.Backup.TTLDays
	}
	if f.Backup.Path != nil {
		s.BackupPath = *f.Backup.Path
	}
	if f.DebounceWindow != nil {
		s.DebounceWindow = time.Duration(*f.DebounceWindow)
	}

	return s, s.validate()
}

func (s Settings) validate() error {
	if s.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", s.Retry.MaxAttempts)
	}
	if s.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %v", s.Retry.BaseDelay)
	}
	if s.Retry.MaxDelay < s.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay %v is below retry.base_delay %v", s.Retry.MaxDelay, s.Retry.BaseDelay)
	}
	if s.BackupTTLDays < 1 {
		return fmt.Errorf("backup.ttl_days must be at least 1, got %d", s.BackupTTLDays)
	}
	if s.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window must not be negative, got %v", s.DebounceWindow)
	}
	return nil
}
