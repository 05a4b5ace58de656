package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a worker paid through daily payouts against a total salary.
type Employee struct {
	Base
	Name        string          `json:"name"`
	Role        string          `json:"role,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	TotalSalary decimal.Decimal `json:"totalSalary"`
	SalaryDate  time.Time       `json:"salaryDate"`
	Archived    bool            `json:"archived,omitempty"`
}

// DailyPayout is an advance paid to an employee.
type DailyPayout struct {
	Base
	EmployeeID int64           `json:"employeeId"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Notes      string          `json:"notes,omitempty"`
}
