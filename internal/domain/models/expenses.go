package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory groups expenses for reporting.
type ExpenseCategory struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Expense is money spent on running the business.
type Expense struct {
	Base
	CategoryID  int64           `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
}
