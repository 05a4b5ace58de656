package khata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/store/storetest"
)

func TestLedgerIsDateOrderedWithBalance(t *testing.T) {
	env := storetest.New(t)
	svc := NewService(env.Collections.Khatas, env.Collections.KhataEntries, zaptest.NewLogger(t))

	k, err := svc.CreateKhata(context.Background(), models.CustomKhata{Name: "Supplier Ali"})
	if err != nil {
		t.Fatalf("create khata: %v", err)
	}

	entries := []struct {
		day    int
		debit  int64
		credit int64
	}{
		{day: 20, credit: 500},
		{day: 5, debit: 2000},
		{day: 12, debit: 300},
	}
	for _, e := range entries {
		_, err := svc.AddEntry(context.Background(), models.KhataEntry{
			KhataID: k.ID,
			Date:    time.Date(2024, 2, e.day, 0, 0, 0, 0, time.UTC),
			Debit:   decimal.NewFromInt(e.debit),
			Credit:  decimal.NewFromInt(e.credit),
		})
		if err != nil {
			t.Fatalf("add entry: %v", err)
		}
	}

	lines, ok := svc.Ledger(k.ID)
	if !ok || len(lines) != 3 {
		t.Fatalf("ledger = %v ok=%v", lines, ok)
	}
	wantDays := []int{5, 12, 20}
	wantBalances := []int64{2000, 2300, 1800}
	for i, line := range lines {
		if line.Entry.Date.Day() != wantDays[i] || !line.Balance.Equal(decimal.NewFromInt(wantBalances[i])) {
			t.Fatalf("line %d: day %d balance %s", i, line.Entry.Date.Day(), line.Balance)
		}
	}
	if !svc.Balance(k.ID).Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("balance = %s", svc.Balance(k.ID))
	}
}

func TestEntryValidationAndDelete(t *testing.T) {
	env := storetest.New(t)
	svc := NewService(env.Collections.Khatas, env.Collections.KhataEntries, nil)
	k, _ := svc.CreateKhata(context.Background(), models.CustomKhata{Name: "Misc"})

	if _, err := svc.AddEntry(context.Background(), models.KhataEntry{KhataID: k.ID}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if _, err := svc.AddEntry(context.Background(), models.KhataEntry{KhataID: 999, Debit: decimal.NewFromInt(1)}); !errors.Is(err, ErrKhataNotFound) {
		t.Fatalf("expected ErrKhataNotFound, got %v", err)
	}

	e, err := svc.AddEntry(context.Background(), models.KhataEntry{KhataID: k.ID, Debit: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.DeleteKhata(context.Background(), k.ID); !errors.Is(err, ErrKhataNotEmpty) {
		t.Fatalf("expected ErrKhataNotEmpty, got %v", err)
	}
	if ok, err := svc.DeleteEntry(context.Background(), e.ID); !ok || err != nil {
		t.Fatalf("delete entry: ok=%v err=%v", ok, err)
	}
	if ok, err := svc.DeleteKhata(context.Background(), k.ID); !ok || err != nil {
		t.Fatalf("delete khata: ok=%v err=%v", ok, err)
	}
}
