// Package storetest builds in-memory store dependencies for tests.
package storetest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/cableshop/internal/repository/durable"
	"github.com/mamadbah2/cableshop/internal/store"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts the clock at t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDs hands out 1, 2, 3, ...
type SequentialIDs struct {
	next atomic.Int64
}

// NextID returns the next identifier.
func (s *SequentialIDs) NextID() int64 { return s.next.Add(1) }

// Pending counts MarkPending calls per key.
type Pending struct {
	mu     sync.Mutex
	counts map[string]int
}

// MarkPending records a change.
func (p *Pending) MarkPending(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[key]++
}

// Count returns the number of changes recorded for key.
func (p *Pending) Count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[key]
}

// ids is shared so identifiers stay unique across reopened environments.
var ids SequentialIDs

// Env is a complete in-memory store environment.
type Env struct {
	Backend     *durable.MemoryBackend
	Pending     *Pending
	Clock       *Clock
	Deps        store.Deps
	Collections *store.Collections
}

// New opens every collection on a fresh memory backend.
func New(t testing.TB) *Env {
	t.Helper()
	backend := durable.NewMemoryBackend()
	return Reopen(t, backend)
}

// Reopen opens every collection on an existing backend, as after a restart.
func Reopen(t testing.TB, backend *durable.MemoryBackend) *Env {
	t.Helper()
	logger := zaptest.NewLogger(t)
	env := &Env{
		Backend: backend,
		Pending: &Pending{},
		Clock:   NewClock(time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)),
	}
	env.Deps = store.Deps{
		Durable: durable.NewAdapter(backend, logger),
		IDs:     &ids,
		Pending: env.Pending,
		Logger:  logger,
		Now:     env.Clock.Now,
	}
	cols, err := store.Open(t.Context(), env.Deps)
	if err != nil {
		t.Fatalf("open collections: %v", err)
	}
	env.Collections = cols
	return env
}
