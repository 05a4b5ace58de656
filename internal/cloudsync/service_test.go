package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mamadbah2/cableshop/internal/repository/durable"
)

type staticSource struct {
	key     string
	payload string
}

func (s staticSource) Key() string { return s.key }

func (s staticSource) SyncPayload(context.Context) (json.RawMessage, error) {
	return json.RawMessage(s.payload), nil
}

type fakeRemote struct {
	mu         sync.Mutex
	configured bool
	err        error
	batches    []Batch
	onPush     func()
}

func (f *fakeRemote) Name() string     { return "fake" }
func (f *fakeRemote) Configured() bool { return f.configured }

func (f *fakeRemote) Push(_ context.Context, batch Batch) error {
	if f.onPush != nil {
		f.onPush()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, batch)
	return nil
}

type fakeJournal struct {
	records []Batch
}

func (j *fakeJournal) Record(_ context.Context, batch Batch, _ time.Time) error {
	j.records = append(j.records, batch)
	return nil
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, backend *durable.MemoryBackend, remote Remote, monitor *Monitor) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), Options{
		Durable:      durable.NewAdapter(backend, nil),
		Remote:       remote,
		Connectivity: monitor,
		DeviceID:     "desk-1",
		Timeout:      time.Second,
		Now:          func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.Register(staticSource{key: "stock", payload: `[{"id":1}]`})
	svc.Register(staticSource{key: "sales", payload: `[]`})
	return svc
}

func TestSyncPushesPendingAndClearsCounters(t *testing.T) {
	remote := &fakeRemote{configured: true}
	svc := newTestService(t, durable.NewMemoryBackend(), remote, NewMonitor("", nil))

	svc.MarkPending("stock")
	svc.MarkPending("stock")
	svc.MarkPending("sales")

	if got := svc.Status().PendingChanges["stock"]; got != 2 {
		t.Fatalf("pending stock = %d, want 2", got)
	}

	res := svc.SyncToCloud(context.Background())
	if !res.Success {
		t.Fatalf("sync failed: %s", res.Error)
	}
	if len(remote.batches) != 1 {
		t.Fatalf("pushes = %d, want 1", len(remote.batches))
	}
	batch := remote.batches[0]
	if batch.DeviceID != "desk-1" || string(batch.Entities["stock"]) != `[{"id":1}]` {
		t.Fatalf("unexpected batch %+v", batch)
	}

	st := svc.Status()
	if len(st.PendingChanges) != 0 {
		t.Fatalf("pending after sync = %v", st.PendingChanges)
	}
	if st.LastSyncTime == nil || !st.LastSyncTime.Equal(fixedNow) {
		t.Fatalf("last sync time = %v", st.LastSyncTime)
	}
	if st.State != StateSynced {
		t.Fatalf("state = %s", st.State)
	}
}

func TestSyncOfflineLeavesCounters(t *testing.T) {
	remote := &fakeRemote{configured: true}
	monitor := NewMonitor("", nil)
	monitor.Set(false)
	svc := newTestService(t, durable.NewMemoryBackend(), remote, monitor)
	svc.MarkPending("stock")

	res := svc.SyncToCloud(context.Background())
	if res.Success || res.Error != ErrOffline.Error() {
		t.Fatalf("unexpected result %+v", res)
	}
	if svc.Status().PendingChanges["stock"] != 1 {
		t.Fatalf("pending counters changed while offline")
	}
	if len(remote.batches) != 0 {
		t.Fatalf("remote should not be called while offline")
	}
	if svc.Status().State != StateIdle {
		t.Fatalf("state = %s, want idle", svc.Status().State)
	}
}

func TestSyncUnconfiguredFails(t *testing.T) {
	svc := newTestService(t, durable.NewMemoryBackend(), &fakeRemote{}, NewMonitor("", nil))
	svc.MarkPending("sales")

	res := svc.SyncToCloud(context.Background())
	if res.Success || res.Error != ErrNotConfigured.Error() {
		t.Fatalf("unexpected result %+v", res)
	}
	if svc.Status().PendingChanges["sales"] != 1 {
		t.Fatalf("pending counters changed")
	}
}

func TestSyncFailureKeepsCounters(t *testing.T) {
	remote := &fakeRemote{configured: true, err: errors.New("boom")}
	svc := newTestService(t, durable.NewMemoryBackend(), remote, NewMonitor("", nil))
	svc.MarkPending("stock")

	res := svc.SyncToCloud(context.Background())
	if res.Success || res.Error != "boom" {
		t.Fatalf("unexpected result %+v", res)
	}
	st := svc.Status()
	if st.PendingChanges["stock"] != 1 {
		t.Fatalf("pending = %v", st.PendingChanges)
	}
	if st.State != StateFailed || st.LastError != "boom" {
		t.Fatalf("state = %s error = %q", st.State, st.LastError)
	}
	if st.LastSyncTime != nil {
		t.Fatalf("last sync time should stay unset")
	}
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	remote := &fakeRemote{configured: true}
	remote.onPush = func() {
		close(entered)
		<-release
	}
	svc := newTestService(t, durable.NewMemoryBackend(), remote, NewMonitor("", nil))
	svc.MarkPending("stock")

	done := make(chan Result)
	go func() { done <- svc.SyncToCloud(context.Background()) }()
	<-entered

	second := svc.SyncToCloud(context.Background())
	if second.Success || second.Error != ErrSyncInProgress.Error() {
		t.Fatalf("second sync = %+v", second)
	}
	if svc.Status().State != StateSyncing {
		t.Fatalf("state during push = %s", svc.Status().State)
	}

	close(release)
	if first := <-done; !first.Success {
		t.Fatalf("first sync failed: %s", first.Error)
	}
}

func TestChangesDuringPushStayPending(t *testing.T) {
	remote := &fakeRemote{configured: true}
	svc := newTestService(t, durable.NewMemoryBackend(), remote, NewMonitor("", nil))
	remote.onPush = func() { svc.MarkPending("stock") }
	svc.MarkPending("stock")

	if res := svc.SyncToCloud(context.Background()); !res.Success {
		t.Fatalf("sync failed: %s", res.Error)
	}
	if got := svc.Status().PendingChanges["stock"]; got != 1 {
		t.Fatalf("pending stock = %d, want 1", got)
	}
}

func TestCountersSurviveRestart(t *testing.T) {
	backend := durable.NewMemoryBackend()
	svc := newTestService(t, backend, &fakeRemote{configured: true}, NewMonitor("", nil))
	svc.MarkPending("stock")
	svc.MarkPending("sales")
	if res := svc.SyncToCloud(context.Background()); !res.Success {
		t.Fatalf("sync failed: %s", res.Error)
	}
	svc.MarkPending("stock")

	restarted := newTestService(t, backend, &fakeRemote{configured: true}, NewMonitor("", nil))
	st := restarted.Status()
	if st.PendingChanges["stock"] != 1 || st.PendingChanges["sales"] != 0 {
		t.Fatalf("restored pending = %v", st.PendingChanges)
	}
	if st.LastSyncTime == nil || !st.LastSyncTime.Equal(fixedNow) {
		t.Fatalf("restored last sync = %v", st.LastSyncTime)
	}
}

func TestSyncJournalsAndRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	journal := &fakeJournal{}
	svc, err := NewService(context.Background(), Options{
		Durable:  durable.NewAdapter(durable.NewMemoryBackend(), nil),
		Remote:   &fakeRemote{configured: true},
		Journal:  journal,
		Metrics:  metrics,
		DeviceID: "desk-1",
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.Register(staticSource{key: "stock", payload: `[]`})
	svc.MarkPending("stock")

	if got := testutil.ToFloat64(metrics.pending.WithLabelValues("stock")); got != 1 {
		t.Fatalf("pending gauge = %v", got)
	}
	if res := svc.SyncToCloud(context.Background()); !res.Success {
		t.Fatalf("sync failed: %s", res.Error)
	}
	if len(journal.records) != 1 {
		t.Fatalf("journal records = %d", len(journal.records))
	}
	if got := testutil.ToFloat64(metrics.attempts.WithLabelValues("success")); got != 1 {
		t.Fatalf("success counter = %v", got)
	}
	if got := testutil.ToFloat64(metrics.pending.WithLabelValues("stock")); got != 0 {
		t.Fatalf("pending gauge after sync = %v", got)
	}
}

func TestBatchKeysSorted(t *testing.T) {
	b := Batch{Entities: map[string]json.RawMessage{"sales": nil, "customers": nil, "stock": nil}}
	keys := b.Keys()
	want := []string{"customers", "sales", "stock"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v", keys)
		}
	}
}
