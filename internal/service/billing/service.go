// Package billing issues customer bills and records scrap sales.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store"
)

var (
	ErrInvalidBill  = errors.New("invalid bill")
	ErrInvalidScrap = errors.New("invalid scrap entry")
)

// Service manages bills and scrap.
type Service struct {
	bills  *store.BillStore
	scrap  *store.ScrapStore
	logger *zap.Logger
	now    func() time.Time

	// mu keeps bill numbers unique.
	mu sync.Mutex
}

// NewService wires the billing service.
func NewService(bills *store.BillStore, scrap *store.ScrapStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{bills: bills, scrap: scrap, logger: logger, now: time.Now}
}

// BillInput is a bill to issue. Line totals and the bill total are computed.
type BillInput struct {
	CustomerName string            `json:"customerName"`
	Items        []models.BillItem `json:"items"`
	Discount     decimal.Decimal   `json:"discount"`
	Date         time.Time         `json:"date"`
}

// CreateBill numbers and stores a bill. Numbers run per day: BILL-20240510-001.
func (s *Service) CreateBill(ctx context.Context, in BillInput) (models.Bill, error) {
	if len(in.Items) == 0 {
		return models.Bill{}, fmt.Errorf("%w: at least one item is required", ErrInvalidBill)
	}
	if in.Discount.IsNegative() {
		return models.Bill{}, fmt.Errorf("%w: discount must not be negative", ErrInvalidBill)
	}

	items := make([]models.BillItem, len(in.Items))
	subtotal := decimal.Zero
	for i, item := range in.Items {
		item.ProductName = strings.TrimSpace(item.ProductName)
		if item.ProductName == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return models.Bill{}, fmt.Errorf("%w: item %d needs a product, a positive quantity and a price", ErrInvalidBill, i+1)
		}
		item.LineTotal = models.LineTotal(item.Quantity, item.UnitPrice)
		subtotal = subtotal.Add(item.LineTotal)
		items[i] = item
	}

	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bills.Create(ctx, models.Bill{
		BillNumber:   s.nextNumberLocked(date),
		CustomerName: strings.TrimSpace(in.CustomerName),
		Items:        items,
		Discount:     in.Discount,
		TotalAmount:  subtotal.Sub(in.Discount),
		Date:         date,
	})
}

// DeleteBill removes a bill.
func (s *Service) DeleteBill(ctx context.Context, id int64) (bool, error) {
	return s.bills.Delete(ctx, id)
}

// Bill returns one bill.
func (s *Service) Bill(id int64) (models.Bill, bool) {
	return s.bills.Get(id)
}

// Bills lists bills dated inside r, newest first.
func (s *Service) Bills(r reporting.Range) []models.Bill {
	return s.bills.Filter(func(b models.Bill) bool { return r.Contains(b.Date) })
}

// AddScrap records scrap sold by weight. Amount is weight times rate.
func (s *Service) AddScrap(ctx context.Context, sc models.Scrap) (models.Scrap, error) {
	sc.MaterialType = strings.TrimSpace(sc.MaterialType)
	switch {
	case sc.MaterialType == "":
		return models.Scrap{}, fmt.Errorf("%w: material type is required", ErrInvalidScrap)
	case sc.Weight <= 0:
		return models.Scrap{}, fmt.Errorf("%w: weight must be positive", ErrInvalidScrap)
	case sc.RatePerKg.IsNegative():
		return models.Scrap{}, fmt.Errorf("%w: rate must not be negative", ErrInvalidScrap)
	}
	sc.Amount = sc.RatePerKg.Mul(decimal.NewFromFloat(sc.Weight)).Round(2)
	if sc.Date.IsZero() {
		sc.Date = s.now().UTC()
	}
	return s.scrap.Create(ctx, sc)
}

// DeleteScrap removes a scrap entry.
func (s *Service) DeleteScrap(ctx context.Context, id int64) (bool, error) {
	return s.scrap.Delete(ctx, id)
}

// Scrap lists scrap entries dated inside r.
func (s *Service) Scrap(r reporting.Range) []models.Scrap {
	return s.scrap.Filter(func(sc models.Scrap) bool { return r.Contains(sc.Date) })
}

// ScrapTotal sums scrap amounts inside r.
func (s *Service) ScrapTotal(r reporting.Range) decimal.Decimal {
	return reporting.PeriodTotal(s.scrap.List(),
		func(sc models.Scrap) time.Time { return sc.Date },
		func(sc models.Scrap) decimal.Decimal { return sc.Amount }, r)
}

func (s *Service) nextNumberLocked(date time.Time) string {
	prefix := "BILL-" + date.Format("20060102") + "-"
	highest := 0
	for _, b := range s.bills.Filter(func(b models.Bill) bool { return strings.HasPrefix(b.BillNumber, prefix) }) {
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(b.BillNumber, prefix), "%d", &n); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}
