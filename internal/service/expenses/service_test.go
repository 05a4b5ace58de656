package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store/storetest"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	env := storetest.New(t)
	svc := NewService(env.Collections.ExpenseCategories, env.Collections.Expenses, zaptest.NewLogger(t))
	svc.now = env.Clock.Now
	return svc
}

func category(t *testing.T, svc *Service, name string) models.ExpenseCategory {
	t.Helper()
	c, err := svc.CreateCategory(context.Background(), models.ExpenseCategory{Name: name})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func spend(t *testing.T, svc *Service, categoryID, amount int64, day int) {
	t.Helper()
	_, err := svc.AddExpense(context.Background(), models.Expense{
		CategoryID: categoryID,
		Amount:     decimal.NewFromInt(amount),
		Date:       time.Date(2024, 6, day, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
}

func TestTotalsPerCategory(t *testing.T) {
	svc := newTestService(t)
	power := category(t, svc, "Electricity")
	rent := category(t, svc, "Rent")

	spend(t, svc, power.ID, 300, 1)
	spend(t, svc, rent.ID, 5000, 2)
	spend(t, svc, power.ID, 200, 15)
	spend(t, svc, power.ID, 999, 30)

	r := reporting.DayRange(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	totals := svc.Totals(r)
	if !totals.Total.Equal(decimal.NewFromInt(5500)) {
		t.Fatalf("total = %s", totals.Total)
	}
	if len(totals.Categories) != 2 || totals.Categories[0].Name != "Rent" || !totals.Categories[1].Total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("categories = %+v", totals.Categories)
	}
	if got := svc.Expenses(r, power.ID); len(got) != 2 {
		t.Fatalf("power expenses = %d", len(got))
	}
}

func TestCategoryRules(t *testing.T) {
	svc := newTestService(t)
	c := category(t, svc, "Fuel")

	if _, err := svc.CreateCategory(context.Background(), models.ExpenseCategory{Name: "fuel"}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	spend(t, svc, c.ID, 10, 3)
	if _, err := svc.DeleteCategory(context.Background(), c.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if _, err := svc.AddExpense(context.Background(), models.Expense{CategoryID: 999, Amount: decimal.NewFromInt(1)}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if _, err := svc.AddExpense(context.Background(), models.Expense{CategoryID: c.ID}); !errors.Is(err, ErrInvalidExpense) {
		t.Fatalf("expected ErrInvalidExpense, got %v", err)
	}
}

func TestUpdateExpense(t *testing.T) {
	svc := newTestService(t)
	a := category(t, svc, "A")
	b := category(t, svc, "B")
	e, err := svc.AddExpense(context.Background(), models.Expense{CategoryID: a.ID, Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.Date.IsZero() {
		t.Fatalf("date should default to now")
	}

	updated, ok, err := svc.UpdateExpense(context.Background(), e.ID, ExpensePatch{CategoryID: &b.ID})
	if err != nil || !ok || updated.CategoryID != b.ID || !updated.Amount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("update: %+v ok=%v err=%v", updated, ok, err)
	}
	missing := int64(999)
	if _, _, err := svc.UpdateExpense(context.Background(), e.ID, ExpensePatch{CategoryID: &missing}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}
