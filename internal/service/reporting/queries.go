package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cableshop/internal/domain/models"
)

// Range is an inclusive time interval. A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

// DayRange spans whole calendar days: from the start of from to the last
// instant of to, in the location of each bound.
func DayRange(from, to time.Time) Range {
	var r Range
	if !from.IsZero() {
		r.From = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	}
	if !to.IsZero() {
		r.To = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return r
}

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// InRange keeps the items whose date falls inside r.
func InRange[T any](items []T, date func(T) time.Time, r Range) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if r.Contains(date(item)) {
			out = append(out, item)
		}
	}
	return out
}

// PeriodTotal sums amount over the items dated inside r.
func PeriodTotal[T any](items []T, date func(T) time.Time, amount func(T) decimal.Decimal, r Range) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if r.Contains(date(item)) {
			total = total.Add(amount(item))
		}
	}
	return total
}

// Sum adds amount over every item.
func Sum[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(amount(item))
	}
	return total
}

// GroupTotals sums amount per key.
func GroupTotals[T any, K comparable](items []T, key func(T) K, amount func(T) decimal.Decimal) map[K]decimal.Decimal {
	totals := make(map[K]decimal.Decimal)
	for _, item := range items {
		k := key(item)
		totals[k] = totals[k].Add(amount(item))
	}
	return totals
}

// LowStock returns the active products whose quantity is at or below the reorder level.
func LowStock(products []models.Product) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range products {
		if !p.Archived && p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}

// RecentN returns the n most recent items by date. The input is not reordered.
func RecentN[T any](items []T, date func(T) time.Time, n int) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return date(sorted[i]).After(date(sorted[j]))
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// LedgerLine is a khata entry with the balance after it.
type LedgerLine struct {
	Entry   models.KhataEntry `json:"entry"`
	Balance decimal.Decimal   `json:"balance"`
}

// LedgerOrder sorts entries by date ascending, oldest creation first on ties,
// and carries a running balance of debit minus credit.
func LedgerOrder(entries []models.KhataEntry) []LedgerLine {
	sorted := make([]models.KhataEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	lines := make([]LedgerLine, len(sorted))
	balance := decimal.Zero
	for i, entry := range sorted {
		balance = balance.Add(entry.Debit).Sub(entry.Credit)
		lines[i] = LedgerLine{Entry: entry, Balance: balance}
	}
	return lines
}
