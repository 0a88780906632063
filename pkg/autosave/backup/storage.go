// Package backup provides a durable local safety net for in-progress
// chapter edits. When a save exhausts its retries, the unsaved content
// is written here so the next editor mount can offer to restore it.
package backup

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Storage is the key-value store backing the backup layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the value for key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(key string) (string, error)

	// Set stores value under key, overwriting any existing value.
	// Returns ErrQuotaExceeded when the backend is out of space.
	Set(key, value string) error

	// Delete removes key. Returns nil if the key doesn't exist.
	Delete(key string) error

	// Keys returns all keys with the given prefix, sorted.
	Keys(prefix string) ([]string, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates a key doesn't exist.
	ErrNotFound = errors.New("backup key not found")

	// ErrStorageClosed indicates the storage has been closed.
	ErrStorageClosed = errors.New("backup storage closed")

	// ErrQuotaExceeded indicates the backend is out of space.
	ErrQuotaExceeded = errors.New("backup storage quota exceeded")
)

// MemoryStorage is an in-memory Storage for testing.
// Data is lost when the process exits.
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[string]string
	maxBytes int
	used     int
	closed   bool
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithQuota limits total stored bytes, emulating the size quota of a
// real client-side store.
func WithQuota(maxBytes int) MemoryOption {
	return func(m *MemoryStorage) {
		m.maxBytes = maxBytes
	}
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	m := &MemoryStorage{
		data: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Storage.
func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStorageClosed
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	next := m.used - len(m.data[key]) + len(value)
	if m.maxBytes > 0 && next > m.maxBytes {
		return ErrQuotaExceeded
	}

	m.used = next
	m.data[key] = value
	return nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	m.used -= len(m.data[key])
	delete(m.data, key)
	return nil
}

// Keys implements Storage.
func (m *MemoryStorage) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Storage.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	m.used = 0
	return nil
}

// Len returns the number of stored keys. Useful for testing.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
