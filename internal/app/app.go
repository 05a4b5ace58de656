// Package app assembles the stores, services, sync and HTTP layers from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/cloudsync"
	"github.com/mamadbah2/cableshop/internal/config"
	"github.com/mamadbah2/cableshop/internal/events"
	"github.com/mamadbah2/cableshop/internal/repository/durable"
	"github.com/mamadbah2/cableshop/internal/repository/mongodb"
	"github.com/mamadbah2/cableshop/internal/repository/sheets"
	"github.com/mamadbah2/cableshop/internal/scheduler"
	"github.com/mamadbah2/cableshop/internal/server/handlers"
	"github.com/mamadbah2/cableshop/internal/server/router"
	"github.com/mamadbah2/cableshop/internal/service/auth"
	"github.com/mamadbah2/cableshop/internal/service/billing"
	"github.com/mamadbah2/cableshop/internal/service/customers"
	"github.com/mamadbah2/cableshop/internal/service/expenses"
	"github.com/mamadbah2/cableshop/internal/service/inventory"
	"github.com/mamadbah2/cableshop/internal/service/khata"
	"github.com/mamadbah2/cableshop/internal/service/materials"
	"github.com/mamadbah2/cableshop/internal/service/payroll"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store"
	"github.com/mamadbah2/cableshop/pkg/clients/cloud"
	whatsappclient "github.com/mamadbah2/cableshop/pkg/clients/whatsapp"
)

// App is the running application graph.
type App struct {
	Engine      *gin.Engine
	Scheduler   *scheduler.Scheduler
	Collections *store.Collections
	Sync        *cloudsync.Service
	Auth        *auth.Service

	durable *durable.Adapter
	closers []func(context.Context) error
	logger  *zap.Logger
}

// New builds the application from cfg. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	loc, err := time.LoadLocation(cfg.Alerts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Alerts.Timezone, err)
	}

	backend, err := openBackend(ctx, cfg.Data)
	if err != nil {
		return nil, err
	}
	a.durable = durable.NewAdapter(backend, logger.Named("durable"))
	a.closers = append(a.closers, func(context.Context) error { return a.durable.Close() })

	ids, err := store.NewSnowflakeIDs(cfg.Data.NodeID)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := cloudsync.NewMetrics(registry)

	remote, err := a.openRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !remote.Configured() {
		logger.Warn("cloud sync is not configured; changes stay local", zap.String("driver", cfg.Sync.Driver))
	}

	monitor := cloudsync.NewMonitor(cfg.Sync.ConnectivityURL, logger.Named("sync.connectivity"))

	var (
		journal     cloudsync.Journal
		syncJournal handlers.SyncJournal
	)
	if cfg.JournalEnabled() {
		rows, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("init sheets journal: %w", err)
		}
		sj := cloudsync.NewSheetsJournal(rows)
		journal, syncJournal = sj, sj
	}

	syncSvc, err := cloudsync.NewService(ctx, cloudsync.Options{
		Durable:      a.durable,
		Remote:       remote,
		Connectivity: monitor,
		Journal:      journal,
		Metrics:      metrics,
		Logger:       logger.Named("sync"),
		DeviceID:     cfg.Sync.DeviceID,
		Timeout:      cfg.Sync.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.Sync = syncSvc

	cols, err := store.Open(ctx, store.Deps{
		Durable: a.durable,
		IDs:     ids,
		Pending: syncSvc,
		Logger:  logger.Named("store"),
	})
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	a.Collections = cols
	for _, col := range cols.All() {
		if col.Synced() {
			syncSvc.Register(col)
		}
	}

	bus := events.NewBus(logger.Named("events"))
	inventorySvc := inventory.NewService(cols.Products, cols.Sales, bus, logger.Named("svc.inventory"))
	materialsSvc := materials.NewService(cols.RawMaterials, cols.ProcessedRawMaterials, logger.Named("svc.materials"))
	customersSvc := customers.NewService(cols.Customers, cols.CustomerPurchases, inventorySvc, logger.Named("svc.customers"))
	payrollSvc := payroll.NewService(cols.Employees, cols.DailyPayouts, logger.Named("svc.payroll"))
	expensesSvc := expenses.NewService(cols.ExpenseCategories, cols.Expenses, logger.Named("svc.expenses"))
	khataSvc := khata.NewService(cols.Khatas, cols.KhataEntries, logger.Named("svc.khata"))
	billingSvc := billing.NewService(cols.Bills, cols.Scrap, logger.Named("svc.billing"))
	reportingSvc := reporting.NewService(cols, logger.Named("svc.reporting"))
	a.Auth = auth.NewService(cols.Users, logger.Named("svc.auth"))

	if _, err := a.Auth.EnsureDefaultAdmin(ctx, cfg.Auth.DefaultAdminUser, cfg.Auth.DefaultAdminPassword); err != nil && !store.IsPersistError(err) {
		return nil, fmt.Errorf("seed admin account: %w", err)
	}

	a.Engine = router.New(router.Handlers{
		Inventory: handlers.NewInventoryHandler(inventorySvc, loc, logger.Named("handlers.inventory")),
		Materials: handlers.NewMaterialsHandler(materialsSvc, logger.Named("handlers.materials")),
		Customers: handlers.NewCustomersHandler(customersSvc, logger.Named("handlers.customers")),
		Payroll:   handlers.NewPayrollHandler(payrollSvc, loc, logger.Named("handlers.payroll")),
		Ledger:    handlers.NewLedgerHandler(expensesSvc, khataSvc, loc, logger.Named("handlers.ledger")),
		Billing:   handlers.NewBillingHandler(billingSvc, loc, logger.Named("handlers.billing")),
		Reports:   handlers.NewReportHandler(reportingSvc, loc, logger.Named("handlers.reports")),
		Sync:      handlers.NewSyncHandler(syncSvc, monitor, syncJournal, logger.Named("handlers.sync")),
		Auth:      handlers.NewAuthHandler(a.Auth, logger.Named("handlers.auth")),
	}, registry, logger.Named("router"))

	jobs := scheduler.Jobs{
		Syncer:       syncSvc,
		SyncSchedule: cfg.Sync.CronSchedule,
		Alerts:       reportingSvc,
	}
	if monitor.URL() != "" {
		jobs.Prober = monitor
	}
	if cfg.AlertsEnabled() {
		client := whatsappclient.NewClient(cfg.WhatsApp)
		jobs.Notifier = whatsappclient.NewAlertSender(client, cfg.WhatsApp.AlertRecipient)
		jobs.AlertSchedule = cfg.Alerts.CronSchedule
		jobs.Digest = reportingSvc
		jobs.DigestSchedule = cfg.Alerts.DigestSchedule
	} else {
		logger.Info("whatsapp alerts disabled")
	}
	a.Scheduler, err = scheduler.NewScheduler(cfg.Alerts.Timezone, jobs, logger.Named("scheduler"))
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Close flushes unsaved changes and releases backends in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Collections != nil {
		if err := a.Collections.FlushAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg config.DataConfig) (durable.Backend, error) {
	switch cfg.Driver {
	case config.DataDriverPostgres:
		return durable.OpenPostgres(ctx, cfg.PostgresDSN)
	case config.DataDriverMemory:
		return durable.NewMemoryBackend(), nil
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return durable.OpenSQLite(cfg.SQLitePath)
	}
}

func (a *App) openRemote(ctx context.Context, cfg *config.Config) (cloudsync.Remote, error) {
	switch cfg.Sync.Driver {
	case config.SyncDriverS3:
		return cloudsync.NewS3Remote(ctx, cfg.Sync.S3)
	case config.SyncDriverMongo:
		if !cfg.SyncConfigured() {
			return cloudsync.NewMongoRemote(nil), nil
		}
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, fmt.Errorf("init mongodb remote: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		return cloudsync.NewMongoRemote(repo), nil
	default:
		client := cloud.NewClient(cfg.Sync.EndpointURL, cfg.Sync.AccessKey, cfg.Sync.Timeout)
		return cloudsync.NewHTTPRemote(client), nil
	}
}
