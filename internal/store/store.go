// Package store implements the generic entity store: an in-memory collection of
// one record type mirrored in full to a durable key after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/repository/durable"
)

// Order decides where new records are inserted.
type Order int

const (
	// Append keeps catalog order: new records go last.
	Append Order = iota
	// NewestFirst keeps transactional logs: new records go first.
	NewestFirst
)

// PendingMarker records that a collection has unsynced local changes.
type PendingMarker interface {
	MarkPending(key string)
}

// IDGenerator hands out record identifiers.
type IDGenerator interface {
	NextID() int64
}

// Deps are the collaborators shared by every store.
type Deps struct {
	Durable *durable.Adapter
	IDs     IDGenerator
	Pending PendingMarker
	Logger  *zap.Logger
	Now     func() time.Time
}

// Config is the per-entity configuration of a store.
type Config[T any] struct {
	// Key is the durable key and the sync entity type.
	Key   string
	Order Order
	// Migrate upgrades a record loaded from durable storage in place.
	Migrate func(*T)
	// Clone deep-copies records holding slices or maps.
	Clone func(T) T
	// LocalOnly excludes the collection from cloud sync.
	LocalOnly bool
}

// PersistError reports that a mutation was applied in memory but could not be
// written to durable storage. The store retries on the next write or Flush.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsPersistError reports whether err carries a *PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

type entity[T any] interface {
	*T
	models.Entity
}

// Store owns the collection of one entity type.
type Store[T any, P entity[T]] struct {
	cfg     Config[T]
	durable *durable.Adapter
	ids     IDGenerator
	pending PendingMarker
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	items []T
	dirty bool
}

// New builds a store and hydrates it from durable storage.
func New[T any, P entity[T]](ctx context.Context, deps Deps, cfg Config[T]) (*Store[T, P], error) {
	if cfg.Key == "" {
		return nil, errors.New("store key must not be empty")
	}
	if deps.Durable == nil {
		return nil, errors.New("store requires a durable adapter")
	}
	if deps.IDs == nil {
		return nil, errors.New("store requires an id generator")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Store[T, P]{
		cfg:     cfg,
		durable: deps.Durable,
		ids:     deps.IDs,
		pending: deps.Pending,
		logger:  logger.With(zap.String("key", cfg.Key)),
		now:     now,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Key returns the durable key of the collection.
func (s *Store[T, P]) Key() string { return s.cfg.Key }

// Synced reports whether the collection takes part in cloud sync.
func (s *Store[T, P]) Synced() bool { return !s.cfg.LocalOnly }

// Create stamps record with a fresh id and creation time, inserts it and persists.
// A *PersistError is returned together with the created record when the write fails.
func (s *Store[T, P]) Create(ctx context.Context, record T) (T, error) {
	P(&record).Stamp(s.ids.NextID(), s.now().UTC())
	record = s.clone(record)

	s.mu.Lock()
	if s.cfg.Order == NewestFirst {
		s.items = append([]T{record}, s.items...)
	} else {
		s.items = append(s.items, record)
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.markPending()
	return s.clone(record), err
}

// Update applies mutate to the record with id. When id is unknown nothing
// happens and ok is false. When mutate fails the record is left untouched and
// its error is returned. The id and creation time cannot be changed.
func (s *Store[T, P]) Update(ctx context.Context, id int64, mutate func(*T) error) (T, bool, error) {
	var zero T

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return zero, false, nil
	}

	current := s.items[idx]
	next := s.clone(current)
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		return zero, true, err
	}
	P(&next).Stamp(P(&current).EntityID(), P(&current).EntityCreatedAt())
	s.items[idx] = next
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.markPending()
	return s.clone(next), true, err
}

// Delete removes the record with id. Unknown ids are a silent no-op.
func (s *Store[T, P]) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.markPending()
	return true, err
}

// Get returns the record with id.
func (s *Store[T, P]) Get(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return s.clone(s.items[idx]), true
}

// List returns a copy of the collection in storage order.
func (s *Store[T, P]) List() []T {
	return s.Filter(nil)
}

// Filter returns copies of the records matching keep, in storage order.
func (s *Store[T, P]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if keep == nil || keep(item) {
			out = append(out, s.clone(item))
		}
	}
	return out
}

// Find returns the first record matching match.
func (s *Store[T, P]) Find(match func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if match(item) {
			return s.clone(item), true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records.
func (s *Store[T, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reload replaces the in-memory collection with the durable one. The store
// lock is held across the read so no mutation can land in between.
func (s *Store[T, P]) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Store[T, P]) reloadLocked(ctx context.Context) error {
	items, err := durable.LoadCollection[T](ctx, s.durable, s.cfg.Key)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.cfg.Key, err)
	}
	if s.cfg.Migrate != nil {
		for i := range items {
			s.cfg.Migrate(&items[i])
		}
	}
	s.items = items
	s.dirty = false
	return nil
}

// ReloadIfClean reloads from durable storage unless memory holds writes the
// durable copy lacks. The dirty check and the reload share one lock hold, so a
// write failing in between cannot be discarded. It reports whether it reloaded.
func (s *Store[T, P]) ReloadIfClean(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		return false, nil
	}
	if err := s.reloadLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Flush retries writing the collection when a previous write failed.
func (s *Store[T, P]) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.persistLocked(ctx)
}

// Dirty reports whether memory holds changes that never reached durable storage.
func (s *Store[T, P]) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// SyncPayload serializes the current collection for a cloud push.
func (s *Store[T, P]) SyncPayload(_ context.Context) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, err := json.Marshal(s.items)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.cfg.Key, err)
	}
	return payload, nil
}

func (s *Store[T, P]) persistLocked(ctx context.Context) error {
	if err := s.durable.Save(ctx, s.cfg.Key, s.items); err != nil {
		s.dirty = true
		s.logger.Error("failed to persist collection, keeping in-memory state", zap.Error(err))
		return &PersistError{Key: s.cfg.Key, Err: err}
	}
	s.dirty = false
	return nil
}

func (s *Store[T, P]) markPending() {
	if s.pending == nil || s.cfg.LocalOnly {
		return
	}
	s.pending.MarkPending(s.cfg.Key)
}

func (s *Store[T, P]) indexLocked(id int64) int {
	for i := range s.items {
		if P(&s.items[i]).EntityID() == id {
			return i
		}
	}
	return -1
}

func (s *Store[T, P]) clone(record T) T {
	if s.cfg.Clone == nil {
		return record
	}
	return s.cfg.Clone(record)
}
