package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-process Store. Used by tests and
// --store memory development runs.
type Memory struct {
	mu       sync.Mutex
	values   map[string][]byte
	expiries map[string]time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:   make(map[string][]byte),
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	if exp, ok := m.expiries[key]; ok && !exp.After(m.now()) {
		delete(m.values, key)
		delete(m.expiries, key)
		return nil, ErrNotFound
	}

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored

	if ttl > 0 {
		m.expiries[key] = m.now().Add(ttl)
	} else {
		delete(m.expiries, key)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.expiries, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
