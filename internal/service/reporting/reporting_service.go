// Package reporting computes derived values over the entity stores: period
// totals, category totals, low stock and ledger order.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/store"
)

const dateLayout = "2006-01-02"

// Summary is the dashboard view of a period.
type Summary struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	SalesCount     int              `json:"salesCount"`
	SalesTotal     decimal.Decimal  `json:"salesTotal"`
	BillsTotal     decimal.Decimal  `json:"billsTotal"`
	ScrapTotal     decimal.Decimal  `json:"scrapTotal"`
	ExpensesTotal  decimal.Decimal  `json:"expensesTotal"`
	PayoutsTotal   decimal.Decimal  `json:"payoutsTotal"`
	NetIncome      decimal.Decimal  `json:"netIncome"`
	Receivables    decimal.Decimal  `json:"receivables"`
	LowStock       []models.Product `json:"lowStock"`
	RecentSales    []models.Sale    `json:"recentSales"`
	RecentExpenses []models.Expense `json:"recentExpenses"`
}

// Service builds summaries and alert texts from the stores.
type Service struct {
	cols   *store.Collections
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(cols *store.Collections, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cols: cols, logger: logger, now: time.Now}
}

// Summary aggregates the period r. Net income is sales, bills and scrap minus
// expenses and payouts.
func (s *Service) Summary(r Range) Summary {
	sales := InRange(s.cols.Sales.List(), func(x models.Sale) time.Time { return x.SaleDate }, r)
	bills := InRange(s.cols.Bills.List(), func(x models.Bill) time.Time { return x.Date }, r)
	scrap := InRange(s.cols.Scrap.List(), func(x models.Scrap) time.Time { return x.Date }, r)
	expenses := InRange(s.cols.Expenses.List(), func(x models.Expense) time.Time { return x.Date }, r)
	payouts := InRange(s.cols.DailyPayouts.List(), func(x models.DailyPayout) time.Time { return x.Date }, r)
	purchases := s.cols.CustomerPurchases.List()

	out := Summary{
		From:           r.From,
		To:             r.To,
		SalesCount:     len(sales),
		SalesTotal:     Sum(sales, func(x models.Sale) decimal.Decimal { return x.FinalAmount }),
		BillsTotal:     Sum(bills, func(x models.Bill) decimal.Decimal { return x.TotalAmount }),
		ScrapTotal:     Sum(scrap, func(x models.Scrap) decimal.Decimal { return x.Amount }),
		ExpensesTotal:  Sum(expenses, func(x models.Expense) decimal.Decimal { return x.Amount }),
		PayoutsTotal:   Sum(payouts, func(x models.DailyPayout) decimal.Decimal { return x.Amount }),
		Receivables:    Sum(purchases, models.CustomerPurchase.Outstanding),
		LowStock:       LowStock(s.cols.Products.List()),
		RecentSales:    RecentN(sales, func(x models.Sale) time.Time { return x.SaleDate }, 5),
		RecentExpenses: RecentN(expenses, func(x models.Expense) time.Time { return x.Date }, 5),
	}
	out.NetIncome = out.SalesTotal.Add(out.BillsTotal).Add(out.ScrapTotal).Sub(out.ExpensesTotal).Sub(out.PayoutsTotal)
	return out
}

// LowStockAlert formats the low-stock list as a message. ok is false when
// nothing is low.
func (s *Service) LowStockAlert() (message string, ok bool) {
	low := LowStock(s.cols.Products.List())
	if len(low) == 0 {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Low stock (%s): %d products at or below reorder level.", s.now().Format(dateLayout), len(low))
	for _, p := range low {
		fmt.Fprintf(&b, "\n- %s: %d left (reorder at %d)", p.Name, p.Quantity, p.ReorderLevel)
	}
	s.logger.Debug("low stock alert built", zap.Int("products", len(low)))
	return b.String(), true
}

// DailyDigest is a one-line text summary of the day containing at.
func (s *Service) DailyDigest(at time.Time) string {
	sum := s.Summary(DayRange(at, at))
	if sum.SalesCount == 0 && sum.ExpensesTotal.IsZero() {
		return fmt.Sprintf("Summary %s: no sales or expenses recorded.", at.Format(dateLayout))
	}
	return fmt.Sprintf("Summary %s: %d sales worth %s, expenses %s, payouts %s, net %s.",
		at.Format(dateLayout), sum.SalesCount,
		sum.SalesTotal.StringFixed(2), sum.ExpensesTotal.StringFixed(2),
		sum.PayoutsTotal.StringFixed(2), sum.NetIncome.StringFixed(2))
}
