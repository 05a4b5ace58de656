package reporting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cableshop/internal/domain/models"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }

func expenseDate(e models.Expense) time.Time         { return e.Date }
func expenseAmount(e models.Expense) decimal.Decimal { return e.Amount }

func TestPeriodTotalIsInclusive(t *testing.T) {
	items := []models.Expense{
		{Amount: decimal.NewFromInt(10), Date: day(1)},
		{Amount: decimal.NewFromInt(20), Date: day(5)},
		{Amount: decimal.NewFromInt(40), Date: day(10)},
		{Amount: decimal.NewFromInt(80), Date: day(11)},
	}

	tests := []struct {
		name string
		r    Range
		want int64
	}{
		{name: "whole days", r: DayRange(day(1), day(10)), want: 70},
		{name: "single day", r: DayRange(day(5), day(5)), want: 20},
		{name: "open start", r: Range{To: DayRange(time.Time{}, day(5)).To}, want: 30},
		{name: "open range", r: Range{}, want: 150},
		{name: "empty", r: DayRange(day(2), day(4)), want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PeriodTotal(items, expenseDate, expenseAmount, tc.r)
			if !got.Equal(decimal.NewFromInt(tc.want)) {
				t.Fatalf("total = %s, want %d", got, tc.want)
			}
		})
	}
}

func TestGroupTotals(t *testing.T) {
	items := []models.Expense{
		{CategoryID: 1, Amount: decimal.NewFromInt(5)},
		{CategoryID: 2, Amount: decimal.NewFromInt(7)},
		{CategoryID: 1, Amount: decimal.NewFromInt(3)},
	}
	totals := GroupTotals(items, func(e models.Expense) int64 { return e.CategoryID }, expenseAmount)
	if !totals[1].Equal(decimal.NewFromInt(8)) || !totals[2].Equal(decimal.NewFromInt(7)) {
		t.Fatalf("totals = %v", totals)
	}
}

func TestLowStockSkipsArchived(t *testing.T) {
	products := []models.Product{
		{Name: "a", Quantity: 5, ReorderLevel: 10},
		{Name: "b", Quantity: 10, ReorderLevel: 10},
		{Name: "c", Quantity: 11, ReorderLevel: 10},
		{Name: "d", Quantity: 0, ReorderLevel: 10, Archived: true},
	}
	low := LowStock(products)
	if len(low) != 2 || low[0].Name != "a" || low[1].Name != "b" {
		t.Fatalf("low stock = %+v", low)
	}
}

func TestRecentNDoesNotMutateInput(t *testing.T) {
	items := []models.Expense{
		{Description: "old", Date: day(1)},
		{Description: "new", Date: day(9)},
		{Description: "mid", Date: day(4)},
	}
	got := RecentN(items, expenseDate, 2)
	if len(got) != 2 || got[0].Description != "new" || got[1].Description != "mid" {
		t.Fatalf("recent = %+v", got)
	}
	if items[0].Description != "old" || items[1].Description != "new" {
		t.Fatalf("input reordered: %+v", items)
	}
	if all := RecentN(items, expenseDate, 10); len(all) != 3 {
		t.Fatalf("recent with large n = %d items", len(all))
	}
}

func TestLedgerOrderRunningBalance(t *testing.T) {
	entries := []models.KhataEntry{
		{Base: models.Base{ID: 3}, Date: day(7), Credit: decimal.NewFromInt(30)},
		{Base: models.Base{ID: 1}, Date: day(1), Debit: decimal.NewFromInt(100)},
		{Base: models.Base{ID: 2}, Date: day(3), Debit: decimal.NewFromInt(50)},
	}
	lines := LedgerOrder(entries)
	wantIDs := []int64{1, 2, 3}
	wantBalances := []int64{100, 150, 120}
	for i, line := range lines {
		if line.Entry.ID != wantIDs[i] || !line.Balance.Equal(decimal.NewFromInt(wantBalances[i])) {
			t.Fatalf("line %d = id %d balance %s", i, line.Entry.ID, line.Balance)
		}
	}
	if entries[0].ID != 3 {
		t.Fatalf("input reordered")
	}
}
