package durable

import (
	"context"
	"sync"
)

// MemoryBackend keeps payloads in process memory. It is used by tests and the
// memory data driver.
type MemoryBackend struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	writeErr error
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{payloads: make(map[string][]byte)}
}

// Read returns a copy of the payload stored under key.
func (m *MemoryBackend) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.payloads[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Write stores a copy of payload, or fails with the injected write error.
func (m *MemoryBackend) Write(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.payloads[key] = stored
	return nil
}

// SetWriteError makes subsequent writes fail with err until reset with nil.
func (m *MemoryBackend) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }
