package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/cableshop/internal/cloudsync"
	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/events"
	"github.com/mamadbah2/cableshop/internal/repository/durable"
	"github.com/mamadbah2/cableshop/internal/server/handlers"
	"github.com/mamadbah2/cableshop/internal/service/auth"
	"github.com/mamadbah2/cableshop/internal/service/billing"
	"github.com/mamadbah2/cableshop/internal/service/customers"
	"github.com/mamadbah2/cableshop/internal/service/expenses"
	"github.com/mamadbah2/cableshop/internal/service/inventory"
	"github.com/mamadbah2/cableshop/internal/service/khata"
	"github.com/mamadbah2/cableshop/internal/service/materials"
	"github.com/mamadbah2/cableshop/internal/service/payroll"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store/storetest"
)

type countingRemote struct{ pushes int }

func (r *countingRemote) Name() string     { return "counting" }
func (r *countingRemote) Configured() bool { return true }

func (r *countingRemote) Push(context.Context, cloudsync.Batch) error {
	r.pushes++
	return nil
}

type testServer struct {
	engine *gin.Engine
	env    *storetest.Env
	auth   *auth.Service
	sync   *cloudsync.Service
	remote *countingRemote
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	env := storetest.New(t)
	cols := env.Collections
	logger := zaptest.NewLogger(t)

	inv := inventory.NewService(cols.Products, cols.Sales, events.NewBus(logger), logger)
	authSvc := auth.NewService(cols.Users, logger)
	reg := prometheus.NewRegistry()
	remote := &countingRemote{}
	monitor := cloudsync.NewMonitor("", logger)
	syncSvc, err := cloudsync.NewService(context.Background(), cloudsync.Options{
		Durable:      durable.NewAdapter(env.Backend, logger),
		Remote:       remote,
		Connectivity: monitor,
		Metrics:      cloudsync.NewMetrics(reg),
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("sync service: %v", err)
	}
	syncSvc.Register(cols.Products)

	h := Handlers{
		Inventory: handlers.NewInventoryHandler(inv, time.UTC, logger),
		Materials: handlers.NewMaterialsHandler(materials.NewService(cols.RawMaterials, cols.ProcessedRawMaterials, logger), logger),
		Customers: handlers.NewCustomersHandler(customers.NewService(cols.Customers, cols.CustomerPurchases, inv, logger), logger),
		Payroll:   handlers.NewPayrollHandler(payroll.NewService(cols.Employees, cols.DailyPayouts, logger), time.UTC, logger),
		Ledger: handlers.NewLedgerHandler(
			expenses.NewService(cols.ExpenseCategories, cols.Expenses, logger),
			khata.NewService(cols.Khatas, cols.KhataEntries, logger),
			time.UTC, logger),
		Billing: handlers.NewBillingHandler(billing.NewService(cols.Bills, cols.Scrap, logger), time.UTC, logger),
		Reports: handlers.NewReportHandler(reporting.NewService(cols, logger), time.UTC, logger),
		Sync:    handlers.NewSyncHandler(syncSvc, monitor, nil, logger),
		Auth:    handlers.NewAuthHandler(authSvc, logger),
	}
	return &testServer{engine: New(h, reg, logger), env: env, auth: authSvc, sync: syncSvc, remote: remote}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) createProduct(t *testing.T, body map[string]any) models.Product {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/products", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product status = %d body = %s", rec.Code, rec.Body.String())
	}
	return decode[models.Product](t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "cableshop_sync_last_success_timestamp_seconds") {
		t.Fatalf("metrics status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestSaleFlow(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, map[string]any{"name": "3 core", "quantity": 50, "reorderLevel": 5, "unitPrice": "150"})

	rec := s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{"productId": p.ID, "quantity": 60})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversell status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{"productId": p.ID, "quantity": 5})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale status = %d body = %s", rec.Code, rec.Body.String())
	}
	sale := decode[models.Sale](t, rec)
	if sale.FinalAmount.String() != "750" {
		t.Fatalf("final amount = %s", sale.FinalAmount)
	}

	got := decode[models.Product](t, s.do(t, http.MethodGet, "/api/v1/products/"+itoa(p.ID), nil))
	if got.Quantity != 45 {
		t.Fatalf("quantity = %d, want 45", got.Quantity)
	}
}

func TestNotFoundAndNoOps(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodGet, "/api/v1/products/999", nil, http.StatusNotFound},
		{http.MethodGet, "/api/v1/products/abc", nil, http.StatusBadRequest},
		{http.MethodPatch, "/api/v1/products/999", map[string]any{"name": "x"}, http.StatusNoContent},
		{http.MethodDelete, "/api/v1/products/999", nil, http.StatusNoContent},
		{http.MethodPost, "/api/v1/customers/999/purchases", map[string]any{"productName": "x", "quantityBundles": 1}, http.StatusNotFound},
		{http.MethodGet, "/api/v1/sales?from=yesterday", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			if rec := s.do(t, tc.method, tc.path, tc.body); rec.Code != tc.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCustomerPurchaseMovesStock(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, map[string]any{"name": "2.5mm", "quantity": 10, "bundles": 10})

	customer := decode[models.Customer](t, s.do(t, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Akbar Traders"}))
	rec := s.do(t, http.MethodPost, "/api/v1/customers/"+itoa(customer.ID)+"/purchases",
		map[string]any{"productName": "2.5mm", "quantityBundles": 3, "totalAmount": "900"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase status = %d body = %s", rec.Code, rec.Body.String())
	}
	purchase := decode[models.CustomerPurchase](t, rec)

	got := decode[models.Product](t, s.do(t, http.MethodGet, "/api/v1/products/"+itoa(p.ID), nil))
	if got.Bundles != 7 {
		t.Fatalf("bundles = %d, want 7", got.Bundles)
	}

	if rec := s.do(t, http.MethodDelete, "/api/v1/purchases/"+itoa(purchase.ID), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	got = decode[models.Product](t, s.do(t, http.MethodGet, "/api/v1/products/"+itoa(p.ID), nil))
	if got.Bundles != 10 {
		t.Fatalf("bundles = %d, want 10", got.Bundles)
	}
}

func TestPersistFailureSetsWarningHeader(t *testing.T) {
	s := newTestServer(t)
	s.env.Backend.SetWriteError(errors.New("disk full"))

	rec := s.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "wire", "quantity": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if warning := rec.Header().Get(handlers.PersistWarningHeader); !strings.Contains(warning, "disk full") {
		t.Fatalf("warning header = %q", warning)
	}
}

func TestAuthHidesPasswordHash(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.auth.EnsureDefaultAdmin(context.Background(), "admin", "secret123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/auth/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me before login = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "admin", "password": "nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "admin", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "passwordHash") {
		t.Fatalf("login response leaks hash: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/auth/users", map[string]any{"username": "counter", "password": "counter1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user = %d body = %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/v1/auth/users", map[string]any{"username": "counter", "password": "counter1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate user = %d", rec.Code)
	}
}

func TestCreateUserNeedsAdminSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/users", map[string]any{"username": "owner", "password": "owner123"})
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"role":"admin"`) {
		t.Fatalf("first account = %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/auth/users", map[string]any{"username": "intruder", "password": "intruder1", "role": "admin"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("create without session = %d", rec.Code)
	}

	s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "owner", "password": "owner123"})
	if rec := s.do(t, http.MethodPost, "/api/v1/auth/users", map[string]any{"username": "counter", "password": "counter1"}); rec.Code != http.StatusCreated {
		t.Fatalf("admin creates operator = %d", rec.Code)
	}

	s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "counter", "password": "counter1"})
	rec = s.do(t, http.MethodPost, "/api/v1/auth/users", map[string]any{"username": "second", "password": "second1", "role": "admin"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("operator creates admin = %d", rec.Code)
	}
}

func TestSyncEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.sync.MarkPending("stock")
	s.sync.MarkPending("stock")

	status := decode[cloudsync.Status](t, s.do(t, http.MethodGet, "/api/v1/sync/status", nil))
	if !status.IsOnline || status.PendingChanges["stock"] != 2 {
		t.Fatalf("status = %+v", status)
	}

	if rec := s.do(t, http.MethodPut, "/api/v1/sync/connectivity", map[string]any{"online": false}); rec.Code != http.StatusOK {
		t.Fatalf("set offline = %d %s", rec.Code, rec.Body.String())
	}
	status = decode[cloudsync.Status](t, s.do(t, http.MethodGet, "/api/v1/sync/status", nil))
	if status.IsOnline {
		t.Fatalf("status still online after offline signal")
	}

	rec := s.do(t, http.MethodPost, "/api/v1/sync", nil)
	result := decode[cloudsync.Result](t, rec)
	if rec.Code != http.StatusOK || result.Success || result.Error != cloudsync.ErrOffline.Error() || s.remote.pushes != 0 {
		t.Fatalf("offline sync = %d %+v pushes=%d", rec.Code, result, s.remote.pushes)
	}
	if got := s.sync.Status().PendingChanges["stock"]; got != 2 {
		t.Fatalf("pending after offline sync = %d, want 2", got)
	}

	s.do(t, http.MethodPut, "/api/v1/sync/connectivity", map[string]any{"online": true})
	rec = s.do(t, http.MethodPost, "/api/v1/sync", nil)
	result = decode[cloudsync.Result](t, rec)
	if !result.Success || s.remote.pushes != 1 {
		t.Fatalf("online sync = %+v pushes=%d", result, s.remote.pushes)
	}

	if rec := s.do(t, http.MethodPut, "/api/v1/sync/connectivity", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing online flag = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/sync/history", nil); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("history = %d %s", rec.Code, rec.Body.String())
	}
}

func TestImportProductsFromWorkbook(t *testing.T) {
	s := newTestServer(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{{"Name", "SKU", "Qty"}, {"3 core", "C3", 40}, {"4 core", "C4", 12}}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var book bytes.Buffer
	if err := f.Write(&book); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "stock.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(book.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d body = %s", rec.Code, rec.Body.String())
	}
	result := decode[inventory.ImportResult](t, rec)
	if result.Created != 2 {
		t.Fatalf("result = %+v", result)
	}
	if got := s.env.Collections.Products.Len(); got != 2 {
		t.Fatalf("products = %d", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
