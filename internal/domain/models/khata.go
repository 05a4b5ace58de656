package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomKhata is a free-form running account (khata) kept by the owner.
type CustomKhata struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// KhataEntry is one debit or credit line in a khata.
type KhataEntry struct {
	Base
	KhataID     int64           `json:"khataId"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}
