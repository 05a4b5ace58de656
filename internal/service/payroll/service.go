// Package payroll manages employees and the daily payouts advanced against their salary.
package payroll

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
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrInvalidEmployee     = errors.New("invalid employee")
	ErrInvalidAmount       = errors.New("payout amount must be positive")
	ErrPayoutExceedsSalary = errors.New("payout exceeds remaining salary")
)

// Service manages employees and payouts.
type Service struct {
	employees *store.EmployeeStore
	payouts   *store.DailyPayoutStore
	logger    *zap.Logger
	now       func() time.Time

	// mu makes the remaining-salary check and the payout write one step.
	mu sync.Mutex
}

// NewService wires the payroll service.
func NewService(employees *store.EmployeeStore, payouts *store.DailyPayoutStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{employees: employees, payouts: payouts, logger: logger, now: time.Now}
}

// EmployeePatch is a partial employee update.
type EmployeePatch struct {
	Name        *string          `json:"name"`
	Role        *string          `json:"role"`
	Phone       *string          `json:"phone"`
	TotalSalary *decimal.Decimal `json:"totalSalary"`
	SalaryDate  *time.Time       `json:"salaryDate"`
	Archived    *bool            `json:"archived"`
}

// CreateEmployee adds an employee.
func (s *Service) CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	e.Name = strings.TrimSpace(e.Name)
	if err := validateEmployee(e); err != nil {
		return models.Employee{}, err
	}
	if e.SalaryDate.IsZero() {
		e.SalaryDate = s.now().UTC()
	}
	return s.employees.Create(ctx, e)
}

// UpdateEmployee merges patch into the employee. Lowering the salary below
// what was already paid out is refused.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, patch EmployeePatch) (models.Employee, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paid := s.paidLocked(id, 0)
	return s.employees.Update(ctx, id, func(e *models.Employee) error {
		if patch.Name != nil {
			e.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Role != nil {
			e.Role = *patch.Role
		}
		if patch.Phone != nil {
			e.Phone = *patch.Phone
		}
		if patch.TotalSalary != nil {
			e.TotalSalary = *patch.TotalSalary
		}
		if patch.SalaryDate != nil {
			e.SalaryDate = *patch.SalaryDate
		}
		if patch.Archived != nil {
			e.Archived = *patch.Archived
		}
		if err := validateEmployee(*e); err != nil {
			return err
		}
		if e.TotalSalary.LessThan(paid) {
			return fmt.Errorf("%w: %s already paid", ErrPayoutExceedsSalary, paid)
		}
		return nil
	})
}

// DeleteEmployee removes an employee. Payouts are kept.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	return s.employees.Delete(ctx, id)
}

// Employee returns one employee.
func (s *Service) Employee(id int64) (models.Employee, bool) {
	return s.employees.Get(id)
}

// Employees lists employees, archived ones only when asked.
func (s *Service) Employees(includeArchived bool) []models.Employee {
	return s.employees.Filter(func(e models.Employee) bool { return includeArchived || !e.Archived })
}

// AddPayout records an advance. Cumulative payouts may not exceed the total salary.
func (s *Service) AddPayout(ctx context.Context, p models.DailyPayout) (models.DailyPayout, error) {
	if !p.Amount.IsPositive() {
		return models.DailyPayout{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	employee, ok := s.employees.Get(p.EmployeeID)
	if !ok {
		return models.DailyPayout{}, ErrEmployeeNotFound
	}
	remaining := employee.TotalSalary.Sub(s.paidLocked(employee.ID, 0))
	if p.Amount.GreaterThan(remaining) {
		return models.DailyPayout{}, fmt.Errorf("%w: %s remaining, %s requested", ErrPayoutExceedsSalary, remaining, p.Amount)
	}
	if p.Date.IsZero() {
		p.Date = s.now().UTC()
	}
	return s.payouts.Create(ctx, p)
}

// PayoutPatch is a partial payout update.
type PayoutPatch struct {
	Amount *decimal.Decimal `json:"amount"`
	Date   *time.Time       `json:"date"`
	Notes  *string          `json:"notes"`
}

// UpdatePayout edits a payout, re-checking the salary limit without counting the payout itself.
func (s *Service) UpdatePayout(ctx context.Context, id int64, patch PayoutPatch) (models.DailyPayout, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.payouts.Get(id)
	if !ok {
		return models.DailyPayout{}, false, nil
	}
	employee, found := s.employees.Get(current.EmployeeID)
	paidOthers := s.paidLocked(current.EmployeeID, id)

	return s.payouts.Update(ctx, id, func(p *models.DailyPayout) error {
		if patch.Amount != nil {
			p.Amount = *patch.Amount
		}
		if patch.Date != nil {
			p.Date = *patch.Date
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		if !p.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		if found && paidOthers.Add(p.Amount).GreaterThan(employee.TotalSalary) {
			return fmt.Errorf("%w: %s remaining", ErrPayoutExceedsSalary, employee.TotalSalary.Sub(paidOthers))
		}
		return nil
	})
}

// DeletePayout removes a payout.
func (s *Service) DeletePayout(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payouts.Delete(ctx, id)
}

// Payouts lists an employee's payouts, newest first.
func (s *Service) Payouts(employeeID int64) []models.DailyPayout {
	return s.payouts.Filter(func(p models.DailyPayout) bool { return p.EmployeeID == employeeID })
}

// AllPayouts lists every payout dated inside r.
func (s *Service) AllPayouts(r reporting.Range) []models.DailyPayout {
	return s.payouts.Filter(func(p models.DailyPayout) bool { return r.Contains(p.Date) })
}

// SalaryStatus is an employee's pay position.
type SalaryStatus struct {
	EmployeeID  int64           `json:"employeeId"`
	TotalSalary decimal.Decimal `json:"totalSalary"`
	Paid        decimal.Decimal `json:"paid"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Status returns the paid and remaining salary of an employee.
func (s *Service) Status(employeeID int64) (SalaryStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees.Get(employeeID)
	if !ok {
		return SalaryStatus{}, false
	}
	paid := s.paidLocked(employeeID, 0)
	return SalaryStatus{
		EmployeeID:  e.ID,
		TotalSalary: e.TotalSalary,
		Paid:        paid,
		Remaining:   e.TotalSalary.Sub(paid),
	}, true
}

func (s *Service) paidLocked(employeeID, exceptPayoutID int64) decimal.Decimal {
	payouts := s.payouts.Filter(func(p models.DailyPayout) bool {
		return p.EmployeeID == employeeID && p.ID != exceptPayoutID
	})
	return reporting.Sum(payouts, func(p models.DailyPayout) decimal.Decimal { return p.Amount })
}

func validateEmployee(e models.Employee) error {
	switch {
	case e.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidEmployee)
	case e.TotalSalary.IsNegative():
		return fmt.Errorf("%w: salary must not be negative", ErrInvalidEmployee)
	}
	return nil
}
