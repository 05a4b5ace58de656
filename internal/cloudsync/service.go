// Package cloudsync tracks unsynced local changes per entity type and pushes
// them to a remote on demand.
package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/repository/durable"
)

// StateKey is the durable key holding pending counters and the last sync time.
const StateKey = "sync_state"

// State is the position of the service in its sync cycle.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateFailed  State = "failed"
)

var (
	// ErrOffline is reported when a sync is requested without connectivity.
	ErrOffline = errors.New("cannot sync while offline")
	// ErrNotConfigured is reported when the remote lacks an endpoint or access key.
	ErrNotConfigured = errors.New("cloud sync is not configured: endpoint URL and access key are required")
	// ErrSyncInProgress is reported when a sync is requested while another runs.
	ErrSyncInProgress = errors.New("a sync is already in progress")
)

// Source exposes one entity collection to the sync service.
type Source interface {
	Key() string
	SyncPayload(ctx context.Context) (json.RawMessage, error)
}

// Batch is the full state of every entity type pushed in one sync.
type Batch struct {
	DeviceID    string                     `json:"deviceId"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Entities    map[string]json.RawMessage `json:"entities"`
}

// Keys returns the entity types of the batch in sorted order.
func (b Batch) Keys() []string {
	keys := make([]string, 0, len(b.Entities))
	for key := range b.Entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Remote receives pushed batches.
type Remote interface {
	Name() string
	Configured() bool
	Push(ctx context.Context, batch Batch) error
}

// Connectivity reports the host's network signal.
type Connectivity interface {
	Online() bool
}

// Journal records successful syncs somewhere a human can read them.
type Journal interface {
	Record(ctx context.Context, batch Batch, syncedAt time.Time) error
}

// Status is the externally visible sync state.
type Status struct {
	IsOnline       bool           `json:"isOnline"`
	PendingChanges map[string]int `json:"pendingChanges"`
	LastSyncTime   *time.Time     `json:"lastSyncTime,omitempty"`
	State          State          `json:"state"`
	LastError      string         `json:"lastError,omitempty"`
}

// Result is returned by SyncToCloud. Failures are reported here, never raised.
type Result struct {
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Pushed   []string  `json:"pushed,omitempty"`
	SyncedAt time.Time `json:"syncedAt,omitempty"`
}

type persistedState struct {
	Pending      map[string]int `json:"pendingChanges"`
	LastSyncTime *time.Time     `json:"lastSyncTime,omitempty"`
}

// Options configures a Service.
type Options struct {
	Durable      *durable.Adapter
	Remote       Remote
	Connectivity Connectivity
	Journal      Journal
	Metrics      *Metrics
	Logger       *zap.Logger
	DeviceID     string
	Timeout      time.Duration
	Now          func() time.Time
}

// Service is the sync reconciliation service.
type Service struct {
	durable  *durable.Adapter
	remote   Remote
	conn     Connectivity
	journal  Journal
	metrics  *Metrics
	logger   *zap.Logger
	deviceID string
	timeout  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	sources   map[string]Source
	persisted persistedState
	state     State
	lastError string
}

// NewService restores pending counters from durable storage.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Durable == nil {
		return nil, errors.New("sync service requires a durable adapter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	conn := opts.Connectivity
	if conn == nil {
		conn = NewMonitor("", logger)
	}

	s := &Service{
		durable:  opts.Durable,
		remote:   opts.Remote,
		conn:     conn,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		logger:   logger,
		deviceID: opts.DeviceID,
		timeout:  timeout,
		now:      now,
		sources:  make(map[string]Source),
		state:    StateIdle,
	}

	if _, err := s.durable.LoadDocument(ctx, StateKey, &s.persisted); err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	if s.persisted.Pending == nil {
		s.persisted.Pending = make(map[string]int)
	}
	for key, count := range s.persisted.Pending {
		s.metrics.setPending(key, count)
	}
	return s, nil
}

// Register adds a collection to the set pushed on sync.
func (s *Service) Register(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.Key()] = src
}

// MarkPending records one more unsynced change for the entity type.
func (s *Service) MarkPending(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted.Pending[key]++
	s.metrics.setPending(key, s.persisted.Pending[key])
	s.saveLocked()
}

// Status returns the current sync status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		IsOnline:       s.conn.Online(),
		PendingChanges: make(map[string]int, len(s.persisted.Pending)),
		State:          s.state,
		LastError:      s.lastError,
	}
	for key, count := range s.persisted.Pending {
		if count > 0 {
			st.PendingChanges[key] = count
		}
	}
	if s.persisted.LastSyncTime != nil {
		t := *s.persisted.LastSyncTime
		st.LastSyncTime = &t
	}
	return st
}

// SyncToCloud pushes the full state of every entity type with pending changes.
// Offline, unconfigured and concurrent requests fail without touching state.
// A failed push leaves counters as they were.
func (s *Service) SyncToCloud(ctx context.Context) Result {
	s.mu.Lock()
	if s.state == StateSyncing {
		s.mu.Unlock()
		s.metrics.observe("rejected")
		return Result{Error: ErrSyncInProgress.Error()}
	}
	if !s.conn.Online() {
		s.mu.Unlock()
		s.metrics.observe("offline")
		return Result{Error: ErrOffline.Error()}
	}
	if s.remote == nil || !s.remote.Configured() {
		s.mu.Unlock()
		s.metrics.observe("unconfigured")
		return Result{Error: ErrNotConfigured.Error()}
	}

	pushed := make(map[string]int)
	for key, count := range s.persisted.Pending {
		if count > 0 {
			pushed[key] = count
		}
	}
	sources := make(map[string]Source, len(pushed))
	for key := range pushed {
		if src, ok := s.sources[key]; ok {
			sources[key] = src
		}
	}
	s.state = StateSyncing
	s.mu.Unlock()

	started := s.now()
	batch, err := s.buildBatch(ctx, sources, started)
	if err == nil && len(batch.Entities) > 0 {
		pushCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.remote.Push(pushCtx, batch)
		cancel()
	}

	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.lastError = err.Error()
		s.mu.Unlock()
		s.metrics.observe("failure")
		s.logger.Warn("cloud sync failed", zap.String("remote", s.remote.Name()), zap.Error(err))
		return Result{Error: err.Error()}
	}

	syncedAt := s.now().UTC()
	s.mu.Lock()
	for key, count := range pushed {
		// Changes made while the push was in flight stay pending.
		remaining := s.persisted.Pending[key] - count
		if remaining <= 0 {
			delete(s.persisted.Pending, key)
			remaining = 0
		} else {
			s.persisted.Pending[key] = remaining
		}
		s.metrics.setPending(key, remaining)
	}
	s.persisted.LastSyncTime = &syncedAt
	s.state = StateSynced
	s.lastError = ""
	s.saveLocked()
	s.mu.Unlock()

	s.metrics.observe("success")
	s.metrics.markSynced(syncedAt)

	keys := batch.Keys()
	s.logger.Info("cloud sync completed",
		zap.String("remote", s.remote.Name()),
		zap.Strings("entities", keys),
		zap.Duration("duration", time.Since(started)))

	if s.journal != nil && len(keys) > 0 {
		if err := s.journal.Record(ctx, batch, syncedAt); err != nil {
			s.logger.Warn("failed to journal sync", zap.Error(err))
		}
	}

	return Result{Success: true, Pushed: keys, SyncedAt: syncedAt}
}

func (s *Service) buildBatch(ctx context.Context, sources map[string]Source, at time.Time) (Batch, error) {
	batch := Batch{DeviceID: s.deviceID, GeneratedAt: at.UTC(), Entities: make(map[string]json.RawMessage, len(sources))}
	for key, src := range sources {
		payload, err := src.SyncPayload(ctx)
		if err != nil {
			return Batch{}, fmt.Errorf("snapshot %s: %w", key, err)
		}
		batch.Entities[key] = payload
	}
	return batch, nil
}

// saveLocked writes counters while s.mu is held so snapshots land in order.
func (s *Service) saveLocked() {
	if err := s.durable.Save(context.Background(), StateKey, s.persisted); err != nil {
		s.logger.Error("failed to persist sync state", zap.Error(err))
	}
}
