package durable

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type record struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

func TestLoadCollectionMissingKey(t *testing.T) {
	a := NewAdapter(NewMemoryBackend(), nil)
	items, err := LoadCollection[record](context.Background(), a, "stock")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil collection, got %#v", items)
	}
}

func TestSaveLoadRoundTripKeepsDates(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryBackend(), nil)
	when := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	in := []record{{ID: 1, Name: "3/29 copper", Date: when}}

	if err := a.Save(ctx, "stock", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadCollection[record](ctx, a, "stock")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || out[0].Name != in[0].Name {
		t.Fatalf("unexpected records %#v", out)
	}
	if !out[0].Date.Equal(when) {
		t.Fatalf("date drifted: got %v want %v", out[0].Date, when)
	}
}

func TestLoadCollectionCorruptPayloadIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	backend := NewMemoryBackend()
	_ = backend.Write(ctx, "bills", []byte(`{"bills": [1, 2`))
	a := NewAdapter(backend, zap.New(core))

	items, err := LoadCollection[record](ctx, a, "bills")
	if err != nil {
		t.Fatalf("corrupt payload must not raise: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty collection, got %d", len(items))
	}
	if logs.FilterMessage("discarding corrupt collection").Len() != 1 {
		t.Fatalf("expected corrupt payload warning")
	}
}

func TestLoadCollectionUnwrapsLegacyShape(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	_ = backend.Write(ctx, "customers", []byte(`{"version": 2, "customers": [{"id": 7, "name": "Ali Traders"}]}`))
	a := NewAdapter(backend, nil)

	items, err := LoadCollection[record](ctx, a, "customers")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].ID != 7 {
		t.Fatalf("expected unwrapped record, got %#v", items)
	}
}

func TestUnwrapCollection(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "array", payload: ` [1,2] `},
		{name: "wrapper", payload: `{"items":[1]}`},
		{name: "wrapper without array", payload: `{"items":1}`, wantErr: true},
		{name: "empty", payload: `   `, wantErr: true},
		{name: "scalar", payload: `42`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := unwrapCollection([]byte(tc.payload))
			if (err != nil) != tc.wantErr {
				t.Fatalf("unwrapCollection(%q) error = %v, wantErr %v", tc.payload, err, tc.wantErr)
			}
		})
	}
}

func TestSavePropagatesBackendFailure(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SetWriteError(errors.New("disk full"))
	a := NewAdapter(backend, nil)

	if err := a.Save(context.Background(), "stock", []record{}); err == nil {
		t.Fatalf("expected write failure")
	}
}

func TestLoadDocument(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	a := NewAdapter(backend, nil)

	var doc map[string]int
	ok, err := a.LoadDocument(ctx, "sync_state", &doc)
	if err != nil || ok {
		t.Fatalf("missing document: ok=%v err=%v", ok, err)
	}

	_ = backend.Write(ctx, "sync_state", []byte(`not json`))
	ok, err = a.LoadDocument(ctx, "sync_state", &doc)
	if err != nil || ok {
		t.Fatalf("corrupt document: ok=%v err=%v", ok, err)
	}

	if err := a.Save(ctx, "sync_state", map[string]int{"stock": 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err = a.LoadDocument(ctx, "sync_state", &doc)
	if err != nil || !ok || doc["stock"] != 2 {
		t.Fatalf("stored document: ok=%v err=%v doc=%v", ok, err, doc)
	}
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "shop.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	if _, err := backend.Read(ctx, "stock"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := backend.Write(ctx, "stock", []byte(`[1]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := backend.Write(ctx, "stock", []byte(`[1,2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	payload, err := backend.Read(ctx, "stock")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(payload) != `[1,2]` {
		t.Fatalf("payload = %s", payload)
	}
}
