// Package storage persists the session record as string key/value pairs,
// the same three keys a browser keeps in local storage.
package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Session keys
const (
	KeyToken       = "token"
	KeyUser        = "user"
	KeyTokenExpiry = "token_expiry"
)

// SessionKeys lists every key owned by the session
var SessionKeys = []string{KeyToken, KeyUser, KeyTokenExpiry}

// ErrNotFound is returned by Get for absent keys
var ErrNotFound = errors.New("storage: key not found")

// Batch is a set of writes applied atomically
type Batch struct {
	Set   map[string]string
	Unset []string
}

// Empty reports whether the batch does nothing
func (b Batch) Empty() bool {
	return len(b.Set) == 0 && len(b.Unset) == 0
}

// keys returns the Set keys in a stable order
func (b Batch) keys() []string {
	out := make([]string, 0, len(b.Set))
	for k := range b.Set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Store is a durable key/value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Apply(ctx context.Context, b Batch) error
	Close() error
}

// Clear removes every session key
func Clear(ctx context.Context, s Store) error {
	return s.Apply(ctx, Batch{Unset: SessionKeys})
}

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Apply writes the batch
func (m *MemoryStore) Apply(_ context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range b.Unset {
		delete(m.values, k)
	}
	for k, v := range b.Set {
		m.values[k] = v
	}
	return nil
}

// Len returns the number of stored keys
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }
