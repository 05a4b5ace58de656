package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/server/handlers"
)

// Handlers bundles every HTTP adapter mounted by the router.
type Handlers struct {
	Inventory *handlers.InventoryHandler
	Materials *handlers.MaterialsHandler
	Customers *handlers.CustomersHandler
	Payroll   *handlers.PayrollHandler
	Ledger    *handlers.LedgerHandler
	Billing   *handlers.BillingHandler
	Reports   *handlers.ReportHandler
	Sync      *handlers.SyncHandler
	Auth      *handlers.AuthHandler
}

// New wires the Gin engine with required routes and middlewares. gatherer
// backs /metrics; nil uses the default prometheus registry.
func New(h Handlers, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")

	products := api.Group("/products")
	products.GET("", h.Inventory.ListProducts)
	products.POST("", h.Inventory.CreateProduct)
	products.GET("/low-stock", h.Inventory.LowStock)
	products.POST("/import", h.Inventory.ImportProducts)
	products.GET("/:id", h.Inventory.GetProduct)
	products.PATCH("/:id", h.Inventory.UpdateProduct)
	products.DELETE("/:id", h.Inventory.DeleteProduct)

	sales := api.Group("/sales")
	sales.GET("", h.Inventory.ListSales)
	sales.POST("", h.Inventory.RecordSale)
	sales.GET("/recent", h.Inventory.RecentSales)
	sales.GET("/export", h.Inventory.ExportSales)
	sales.GET("/:id", h.Inventory.GetSale)
	sales.PATCH("/:id", h.Inventory.UpdateSale)
	sales.DELETE("/:id", h.Inventory.DeleteSale)

	raw := api.Group("/raw-materials")
	raw.GET("", h.Materials.ListRaw)
	raw.POST("", h.Materials.CreateRaw)
	raw.GET("/:id", h.Materials.GetRaw)
	raw.PATCH("/:id", h.Materials.UpdateRaw)
	raw.DELETE("/:id", h.Materials.DeleteRaw)

	processed := api.Group("/processed-materials")
	processed.GET("", h.Materials.ListProcessed)
	processed.POST("", h.Materials.Process)
	processed.GET("/:id", h.Materials.GetProcessed)
	processed.PATCH("/:id", h.Materials.UpdateProcessed)
	processed.POST("/:id/consume", h.Materials.ConsumeProcessed)
	processed.DELETE("/:id", h.Materials.DeleteProcessed)

	customers := api.Group("/customers")
	customers.GET("", h.Customers.List)
	customers.POST("", h.Customers.Create)
	customers.GET("/balances", h.Customers.Balances)
	customers.GET("/:id", h.Customers.Get)
	customers.PATCH("/:id", h.Customers.Update)
	customers.DELETE("/:id", h.Customers.Delete)
	customers.GET("/:id/purchases", h.Customers.ListPurchases)
	customers.POST("/:id/purchases", h.Customers.AddPurchase)

	purchases := api.Group("/purchases")
	purchases.GET("/:id", h.Customers.GetPurchase)
	purchases.PATCH("/:id", h.Customers.UpdatePurchase)
	purchases.DELETE("/:id", h.Customers.DeletePurchase)

	employees := api.Group("/employees")
	employees.GET("", h.Payroll.List)
	employees.POST("", h.Payroll.Create)
	employees.GET("/:id", h.Payroll.Get)
	employees.PATCH("/:id", h.Payroll.Update)
	employees.DELETE("/:id", h.Payroll.Delete)
	employees.GET("/:id/payouts", h.Payroll.ListPayouts)
	employees.POST("/:id/payouts", h.Payroll.AddPayout)

	payouts := api.Group("/payouts")
	payouts.GET("", h.Payroll.AllPayouts)
	payouts.PATCH("/:id", h.Payroll.UpdatePayout)
	payouts.DELETE("/:id", h.Payroll.DeletePayout)

	categories := api.Group("/expense-categories")
	categories.GET("", h.Ledger.ListCategories)
	categories.POST("", h.Ledger.CreateCategory)
	categories.PATCH("/:id", h.Ledger.RenameCategory)
	categories.DELETE("/:id", h.Ledger.DeleteCategory)

	expenses := api.Group("/expenses")
	expenses.GET("", h.Ledger.ListExpenses)
	expenses.POST("", h.Ledger.AddExpense)
	expenses.GET("/totals", h.Ledger.ExpenseTotals)
	expenses.GET("/export", h.Ledger.ExportExpenses)
	expenses.PATCH("/:id", h.Ledger.UpdateExpense)
	expenses.DELETE("/:id", h.Ledger.DeleteExpense)

	khatas := api.Group("/khatas")
	khatas.GET("", h.Ledger.ListKhatas)
	khatas.POST("", h.Ledger.CreateKhata)
	khatas.PATCH("/:id", h.Ledger.UpdateKhata)
	khatas.DELETE("/:id", h.Ledger.DeleteKhata)
	khatas.GET("/:id/entries", h.Ledger.KhataLedger)
	khatas.POST("/:id/entries", h.Ledger.AddEntry)

	entries := api.Group("/khata-entries")
	entries.PATCH("/:id", h.Ledger.UpdateEntry)
	entries.DELETE("/:id", h.Ledger.DeleteEntry)

	bills := api.Group("/bills")
	bills.GET("", h.Billing.ListBills)
	bills.POST("", h.Billing.CreateBill)
	bills.GET("/:id", h.Billing.GetBill)
	bills.DELETE("/:id", h.Billing.DeleteBill)

	scrap := api.Group("/scrap")
	scrap.GET("", h.Billing.ListScrap)
	scrap.POST("", h.Billing.AddScrap)
	scrap.DELETE("/:id", h.Billing.DeleteScrap)

	api.GET("/reports/summary", h.Reports.Summary)

	api.GET("/sync/status", h.Sync.Status)
	api.GET("/sync/history", h.Sync.History)
	api.POST("/sync", h.Sync.Sync)
	api.PUT("/sync/connectivity", h.Sync.SetConnectivity)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.GET("/me", h.Auth.Me)
	authGroup.GET("/users", h.Auth.ListUsers)
	authGroup.POST("/users", h.Auth.CreateUser)

	if logger != nil {
		logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if warning := c.Writer.Header().Get(handlers.PersistWarningHeader); warning != "" {
			fields = append(fields, zap.String("persist_warning", warning))
		}
		logger.Info("request completed", fields...)
	}
}
