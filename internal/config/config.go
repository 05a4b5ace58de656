package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers for the local durable store.
const (
	DataDriverSQLite   = "sqlite"
	DataDriverPostgres = "postgres"
	DataDriverMemory   = "memory"
)

// Remote drivers for cloud sync.
const (
	SyncDriverHTTP  = "http"
	SyncDriverS3    = "s3"
	SyncDriverMongo = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Data     DataConfig
	Sync     SyncConfig
	MongoDB  MongoDBConfig
	Sheets   SheetsConfig
	WhatsApp WhatsAppConfig
	Alerts   AlertsConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// DataConfig selects and configures the local durable store.
type DataConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	NodeID      int64
}

// SyncConfig holds the cloud reconciliation settings.
type SyncConfig struct {
	Driver          string
	EndpointURL     string
	AccessKey       string
	DeviceID        string
	Timeout         time.Duration
	CronSchedule    string
	ConnectivityURL string
	S3              S3Config
}

// S3Config configures the S3 sync remote.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// MongoDBConfig holds settings for the MongoDB sync remote.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration for the Google Sheets sync journal.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// WhatsAppConfig contains credentials for low-stock alerts through the WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken    string
	PhoneNumberID  string
	BaseURL        string
	APIVersion     string
	AlertRecipient string
}

// AlertsConfig holds scheduler settings for stock alerts and the daily digest.
type AlertsConfig struct {
	CronSchedule   string
	DigestSchedule string
	Timezone       string
}

// AuthConfig seeds the first administrator account.
type AuthConfig struct {
	DefaultAdminUser     string
	DefaultAdminPassword string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	nodeID, err := strconv.ParseInt(getenvWithDefault("NODE_ID", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NODE_ID: %w", err)
	}

	timeout, err := time.ParseDuration(getenvWithDefault("SYNC_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Driver:      strings.ToLower(getenvWithDefault("DATA_DRIVER", DataDriverSQLite)),
			SQLitePath:  getenvWithDefault("SQLITE_PATH", "data/cableshop.db"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			NodeID:      nodeID,
		},
		Sync: SyncConfig{
			Driver:          strings.ToLower(getenvWithDefault("SYNC_DRIVER", SyncDriverHTTP)),
			EndpointURL:     os.Getenv("SYNC_ENDPOINT_URL"),
			AccessKey:       os.Getenv("SYNC_ACCESS_KEY"),
			DeviceID:        getenvWithDefault("SYNC_DEVICE_ID", "desktop-1"),
			Timeout:         timeout,
			CronSchedule:    os.Getenv("SYNC_CRON_SCHEDULE"),
			ConnectivityURL: os.Getenv("CONNECTIVITY_URL"),
			S3: S3Config{
				Bucket:          os.Getenv("SYNC_S3_BUCKET"),
				Region:          getenvWithDefault("SYNC_S3_REGION", "us-east-1"),
				Endpoint:        os.Getenv("SYNC_S3_ENDPOINT"),
				Prefix:          getenvWithDefault("SYNC_S3_PREFIX", "cableshop"),
				AccessKeyID:     os.Getenv("SYNC_S3_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("SYNC_S3_SECRET_ACCESS_KEY"),
				PathStyle:       strings.EqualFold(os.Getenv("SYNC_S3_PATH_STYLE"), "true"),
			},
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "cableshop"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("WHATSAPP_ALERT_RECIPIENT"),
		},
		Alerts: AlertsConfig{
			CronSchedule:   getenvWithDefault("ALERT_CRON_SCHEDULE", "0 9 * * *"),
			DigestSchedule: getenvWithDefault("DIGEST_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "Asia/Karachi"),
		},
		Auth: AuthConfig{
			DefaultAdminUser:     getenvWithDefault("DEFAULT_ADMIN_USER", "admin"),
			DefaultAdminPassword: os.Getenv("DEFAULT_ADMIN_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
// Sync credentials are optional: an unconfigured remote only disables cloud sync.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Data.Driver {
	case DataDriverSQLite:
		if c.Data.SQLitePath == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	case DataDriverPostgres:
		if c.Data.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN must be provided when DATA_DRIVER=postgres")
		}
	case DataDriverMemory:
	default:
		return fmt.Errorf("unknown DATA_DRIVER %q", c.Data.Driver)
	}

	if c.Data.NodeID < 0 || c.Data.NodeID > 1023 {
		return errors.New("NODE_ID must be between 0 and 1023")
	}

	switch c.Sync.Driver {
	case SyncDriverHTTP, SyncDriverS3, SyncDriverMongo:
	default:
		return fmt.Errorf("unknown SYNC_DRIVER %q", c.Sync.Driver)
	}

	if c.Sync.Timeout <= 0 {
		return errors.New("SYNC_TIMEOUT must be positive")
	}

	if c.Alerts.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

// SyncConfigured reports whether the selected remote has the credentials it needs.
func (c *Config) SyncConfigured() bool {
	switch c.Sync.Driver {
	case SyncDriverS3:
		return c.Sync.S3.Bucket != "" && c.Sync.S3.AccessKeyID != ""
	case SyncDriverMongo:
		return c.MongoDB.URI != "" && c.MongoDB.DBName != ""
	default:
		return c.Sync.EndpointURL != "" && c.Sync.AccessKey != ""
	}
}

// AlertsEnabled reports whether WhatsApp low-stock alerts can be sent.
func (c *Config) AlertsEnabled() bool {
	return c.WhatsApp.AccessToken != "" && c.WhatsApp.PhoneNumberID != "" && c.WhatsApp.AlertRecipient != ""
}

// JournalEnabled reports whether successful syncs are journaled to Google Sheets.
func (c *Config) JournalEnabled() bool {
	return c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
