package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DRIVER", "")
	t.Setenv("SYNC_DRIVER", "")
	t.Setenv("SYNC_TIMEOUT", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("DIGEST_CRON_SCHEDULE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Data.Driver != DataDriverSQLite {
		t.Fatalf("driver = %q", cfg.Data.Driver)
	}
	if cfg.Sync.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Sync.Timeout)
	}
	if cfg.Alerts.DigestSchedule != "0 21 * * *" {
		t.Fatalf("digest schedule = %q", cfg.Alerts.DigestSchedule)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "APP_PORT=9090\nSYNC_ENDPOINT_URL=https://sync.example.com\nSYNC_ACCESS_KEY=secret\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	for _, key := range []string{"APP_PORT", "SYNC_ENDPOINT_URL", "SYNC_ACCESS_KEY", "SYNC_DRIVER"} {
		key := key
		prev, had := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if !cfg.SyncConfigured() {
		t.Fatalf("expected http sync to be configured")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080"},
			Data:   DataConfig{Driver: DataDriverMemory, NodeID: 1},
			Sync:   SyncConfig{Driver: SyncDriverHTTP, Timeout: time.Second},
			Alerts: AlertsConfig{Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown data driver", mutate: func(c *Config) { c.Data.Driver = "csv" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Data.Driver = DataDriverPostgres }, wantErr: true},
		{name: "node id out of range", mutate: func(c *Config) { c.Data.NodeID = 4096 }, wantErr: true},
		{name: "unknown sync driver", mutate: func(c *Config) { c.Sync.Driver = "ftp" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Sync.Timeout = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSyncConfiguredPerDriver(t *testing.T) {
	cfg := &Config{Sync: SyncConfig{Driver: SyncDriverS3}}
	if cfg.SyncConfigured() {
		t.Fatalf("s3 without bucket should be unconfigured")
	}
	cfg.Sync.S3 = S3Config{Bucket: "b", AccessKeyID: "id"}
	if !cfg.SyncConfigured() {
		t.Fatalf("s3 with bucket and key should be configured")
	}

	cfg = &Config{Sync: SyncConfig{Driver: SyncDriverMongo}, MongoDB: MongoDBConfig{URI: "mongodb://localhost", DBName: "x"}}
	if !cfg.SyncConfigured() {
		t.Fatalf("mongo should be configured")
	}

	cfg = &Config{Sync: SyncConfig{Driver: SyncDriverHTTP, EndpointURL: "https://x"}}
	if cfg.SyncConfigured() {
		t.Fatalf("http without access key should be unconfigured")
	}
}
