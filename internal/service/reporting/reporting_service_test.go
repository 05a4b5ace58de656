package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/store/storetest"
)

func TestSummaryAndAlerts(t *testing.T) {
	env := storetest.New(t)
	cols := env.Collections
	ctx := context.Background()
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	mustCreate := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	_, err := cols.Products.Create(ctx, models.Product{Name: "2.5mm", Quantity: 2, ReorderLevel: 5})
	mustCreate(err)
	_, err = cols.Products.Create(ctx, models.Product{Name: "4mm", Quantity: 50, ReorderLevel: 5})
	mustCreate(err)
	_, err = cols.Sales.Create(ctx, models.Sale{FinalAmount: decimal.NewFromInt(1000), SaleDate: at})
	mustCreate(err)
	_, err = cols.Sales.Create(ctx, models.Sale{FinalAmount: decimal.NewFromInt(999), SaleDate: at.AddDate(0, 0, -3)})
	mustCreate(err)
	_, err = cols.Expenses.Create(ctx, models.Expense{Amount: decimal.NewFromInt(300), Date: at})
	mustCreate(err)
	_, err = cols.DailyPayouts.Create(ctx, models.DailyPayout{Amount: decimal.NewFromInt(200), Date: at})
	mustCreate(err)
	_, err = cols.Scrap.Create(ctx, models.Scrap{Amount: decimal.NewFromInt(50), Date: at})
	mustCreate(err)
	_, err = cols.CustomerPurchases.Create(ctx, models.CustomerPurchase{TotalAmount: decimal.NewFromInt(700), PaidAmount: decimal.NewFromInt(200)})
	mustCreate(err)

	svc := NewService(cols, nil)
	svc.now = func() time.Time { return at }

	sum := svc.Summary(DayRange(at, at))
	if sum.SalesCount != 1 || !sum.NetIncome.Equal(decimal.NewFromInt(550)) {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.Receivables.Equal(decimal.NewFromInt(500)) || len(sum.LowStock) != 1 {
		t.Fatalf("receivables %s low stock %d", sum.Receivables, len(sum.LowStock))
	}

	msg, ok := svc.LowStockAlert()
	if !ok || !strings.Contains(msg, "2.5mm: 2 left") || strings.Contains(msg, "4mm") {
		t.Fatalf("alert = %q", msg)
	}

	digest := svc.DailyDigest(at)
	if !strings.Contains(digest, "1 sales worth 1000.00") || !strings.Contains(digest, "net 550.00") {
		t.Fatalf("digest = %q", digest)
	}
	if empty := svc.DailyDigest(at.AddDate(0, 1, 0)); !strings.Contains(empty, "no sales") {
		t.Fatalf("empty digest = %q", empty)
	}
}
