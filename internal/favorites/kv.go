package favorites

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound is returned by a KV when the key has never been written.
var ErrKeyNotFound = errors.New("key not found")

// KV is a string-keyed store of string values.
type KV interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set creates or replaces the value under key.
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is an in-memory KV for tests and ephemeral sessions.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// NewMemoryKVWithValues creates an in-memory store seeded with values.
func NewMemoryKVWithValues(values map[string]string) *MemoryKV {
	kv := NewMemoryKV()
	for k, v := range values {
		kv.values[k] = v
	}
	return kv
}

// Get returns the value under key.
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key.
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

var _ KV = (*MemoryKV)(nil)
