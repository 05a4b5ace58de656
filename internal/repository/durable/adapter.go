// Package durable keeps one JSON document per key in a persistent backend.
// Every entity store reads and writes its whole collection through an Adapter,
// which owns serialization and serializes access per key.
package durable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned by backends when no payload exists for a key.
var ErrNotFound = errors.New("durable: key not found")

// Backend stores raw payloads keyed by bucket name.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Adapter serializes values to JSON and stores them through a Backend.
type Adapter struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAdapter wraps the backend.
func NewAdapter(backend Backend, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{backend: backend, logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (a *Adapter) keyLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// LoadCollection reads the array stored under key. A missing key yields an empty
// collection. A corrupt payload is logged and also yields an empty collection.
// Legacy payloads shaped as {"<field>": [...]} are unwrapped.
func LoadCollection[T any](ctx context.Context, a *Adapter, key string) ([]T, error) {
	payload, err := a.read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}

	raw, err := unwrapCollection(payload)
	if err != nil {
		a.logger.Warn("discarding corrupt collection", zap.String("key", key), zap.Error(err))
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		a.logger.Warn("discarding corrupt collection", zap.String("key", key), zap.Error(err))
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// LoadDocument decodes the object stored under key into dst. It reports false
// when the key is missing or the payload is corrupt.
func (a *Adapter) LoadDocument(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := a.read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		a.logger.Warn("discarding corrupt document", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Save serializes v and writes it under key.
func (a *Adapter) Save(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if err := a.backend.Write(ctx, key, payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}

func (a *Adapter) read(ctx context.Context, key string) ([]byte, error) {
	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()

	payload, err := a.backend.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return payload, nil
}

// unwrapCollection returns the JSON array held by payload, accepting either a
// bare array or an object whose first array-valued field (by name) holds it.
func unwrapCollection(payload []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	switch trimmed[0] {
	case '[':
		return trimmed, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		fields := make([]string, 0, len(wrapper))
		for field := range wrapper {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			value := bytes.TrimSpace(wrapper[field])
			if len(value) > 0 && value[0] == '[' {
				return value, nil
			}
		}
		return nil, errors.New("object payload has no array field")
	default:
		return nil, fmt.Errorf("unexpected payload start %q", trimmed[0])
	}
}
