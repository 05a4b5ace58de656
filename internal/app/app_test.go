package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/cableshop/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0"},
		Data:   config.DataConfig{Driver: config.DataDriverMemory, NodeID: 7},
		Sync:   config.SyncConfig{Driver: config.SyncDriverHTTP, DeviceID: "test", Timeout: time.Second},
		Alerts: config.AlertsConfig{Timezone: "UTC", CronSchedule: "0 9 * * *"},
		Auth:   config.AuthConfig{DefaultAdminUser: "admin", DefaultAdminPassword: "changeme"},
	}
}

func TestNewWiresMemoryApp(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	if users := a.Auth.Users(); len(users) != 1 || users[0].Username != "admin" {
		t.Fatalf("users = %+v", users)
	}

	rec := httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d", rec.Code)
	}

	result := a.Sync.SyncToCloud(context.Background())
	if result.Success {
		t.Fatalf("sync without endpoint should fail")
	}
	// The users collection is local only and never counted as pending.
	if _, ok := a.Sync.Status().PendingChanges["users"]; ok {
		t.Fatalf("users should not be tracked for sync")
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	cfg := memoryConfig()
	cfg.Alerts.Timezone = "Nowhere/Land"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestNewUsesSQLiteFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.Data.Driver = config.DataDriverSQLite
	cfg.Data.SQLitePath = t.TempDir() + "/nested/shop.db"

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close(context.Background())
	if got := len(reopened.Auth.Users()); got != 1 {
		t.Fatalf("users after reopen = %d, want 1", got)
	}
}
