package store

import (
	"context"
	"sync"
)

// Keys of persisted client state. Each is stored independently.
const (
	KeyUsername = "chatUsername"
	KeyToken    = "chatSessionToken"
	KeyTheme    = "chatTheme"
	KeyLastRoom = "chatLastRoom"
)

// Prefs handles persisted client state that survives restarts.
type Prefs interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a single value.
	Set(ctx context.Context, key, value string) error

	// Update applies all sets and deletes atomically.
	Update(ctx context.Context, set map[string]string, del []string) error

	// Close releases the underlying storage.
	Close() error
}

// MemoryPrefs is a process-local Prefs used when no data path is configured.
type MemoryPrefs struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory Prefs.
func NewMemory() *MemoryPrefs {
	return &MemoryPrefs{values: make(map[string]string)}
}

func (m *MemoryPrefs) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryPrefs) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryPrefs) Update(_ context.Context, set map[string]string, del []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range set {
		m.values[k] = v
	}
	for _, k := range del {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryPrefs) Close() error {
	return nil
}
