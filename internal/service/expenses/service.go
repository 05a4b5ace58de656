// Package expenses records business expenses by category.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store"
)

var (
	ErrCategoryNotFound = errors.New("expense category not found")
	ErrCategoryInUse    = errors.New("expense category still has expenses")
	ErrDuplicateName    = errors.New("expense category name already exists")
	ErrInvalidExpense   = errors.New("invalid expense")
)

// Service manages expense categories and expenses.
type Service struct {
	categories *store.ExpenseCategoryStore
	expenses   *store.ExpenseStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the expense service.
func NewService(categories *store.ExpenseCategoryStore, expenses *store.ExpenseStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{categories: categories, expenses: expenses, logger: logger, now: time.Now}
}

// CreateCategory adds a category with a unique name.
func (s *Service) CreateCategory(ctx context.Context, c models.ExpenseCategory) (models.ExpenseCategory, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.ExpenseCategory{}, fmt.Errorf("%w: category name is required", ErrInvalidExpense)
	}
	if s.nameTaken(c.Name, 0) {
		return models.ExpenseCategory{}, fmt.Errorf("%w: %s", ErrDuplicateName, c.Name)
	}
	return s.categories.Create(ctx, c)
}

// RenameCategory changes the name and description of a category.
func (s *Service) RenameCategory(ctx context.Context, id int64, name, description string) (models.ExpenseCategory, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ExpenseCategory{}, true, fmt.Errorf("%w: category name is required", ErrInvalidExpense)
	}
	if s.nameTaken(name, id) {
		return models.ExpenseCategory{}, true, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return s.categories.Update(ctx, id, func(c *models.ExpenseCategory) error {
		c.Name = name
		c.Description = description
		return nil
	})
}

// DeleteCategory removes a category that no expense refers to.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	if _, used := s.expenses.Find(func(e models.Expense) bool { return e.CategoryID == id }); used {
		return true, ErrCategoryInUse
	}
	return s.categories.Delete(ctx, id)
}

// Categories lists categories in creation order.
func (s *Service) Categories() []models.ExpenseCategory {
	return s.categories.List()
}

// AddExpense records an expense against an existing category.
func (s *Service) AddExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	if err := s.validate(e); err != nil {
		return models.Expense{}, err
	}
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}
	return s.expenses.Create(ctx, e)
}

// ExpensePatch is a partial expense update.
type ExpensePatch struct {
	CategoryID  *int64           `json:"categoryId"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Date        *time.Time       `json:"date"`
}

// UpdateExpense merges patch into the expense.
func (s *Service) UpdateExpense(ctx context.Context, id int64, patch ExpensePatch) (models.Expense, bool, error) {
	if patch.CategoryID != nil {
		if _, ok := s.categories.Get(*patch.CategoryID); !ok {
			return models.Expense{}, true, ErrCategoryNotFound
		}
	}
	return s.expenses.Update(ctx, id, func(e *models.Expense) error {
		if patch.CategoryID != nil {
			e.CategoryID = *patch.CategoryID
		}
		if patch.Amount != nil {
			e.Amount = *patch.Amount
		}
		if patch.Description != nil {
			e.Description = *patch.Description
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if !e.Amount.IsPositive() {
			return fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
		}
		return nil
	})
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	return s.expenses.Delete(ctx, id)
}

// Expenses lists expenses dated inside r, optionally for one category (0 for all).
func (s *Service) Expenses(r reporting.Range, categoryID int64) []models.Expense {
	return s.expenses.Filter(func(e models.Expense) bool {
		return r.Contains(e.Date) && (categoryID == 0 || e.CategoryID == categoryID)
	})
}

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	CategoryID int64           `json:"categoryId"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
}

// Totals is the expense breakdown of a period.
type Totals struct {
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// Totals sums the expenses inside r, overall and per category, largest first.
func (s *Service) Totals(r reporting.Range) Totals {
	inRange := s.Expenses(r, 0)
	amount := func(e models.Expense) decimal.Decimal { return e.Amount }
	byCategory := reporting.GroupTotals(inRange, func(e models.Expense) int64 { return e.CategoryID }, amount)

	out := Totals{Total: reporting.Sum(inRange, amount), Categories: make([]CategoryTotal, 0, len(byCategory))}
	for id, total := range byCategory {
		name := "uncategorized"
		if c, ok := s.categories.Get(id); ok {
			name = c.Name
		}
		out.Categories = append(out.Categories, CategoryTotal{CategoryID: id, Name: name, Total: total})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		if !out.Categories[i].Total.Equal(out.Categories[j].Total) {
			return out.Categories[i].Total.GreaterThan(out.Categories[j].Total)
		}
		return out.Categories[i].Name < out.Categories[j].Name
	})
	return out
}

// RecentExpenses returns the n latest expenses by date.
func (s *Service) RecentExpenses(n int) []models.Expense {
	return reporting.RecentN(s.expenses.List(), func(e models.Expense) time.Time { return e.Date }, n)
}

func (s *Service) validate(e models.Expense) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	if _, ok := s.categories.Get(e.CategoryID); !ok {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *Service) nameTaken(name string, exceptID int64) bool {
	_, found := s.categories.Find(func(c models.ExpenseCategory) bool {
		return c.ID != exceptID && strings.EqualFold(c.Name, name)
	})
	return found
}
