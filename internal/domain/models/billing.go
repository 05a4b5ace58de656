package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillItem is one line on a bill.
type BillItem struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// LineTotal is quantity times unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Bill is a printed invoice handed to a customer.
type Bill struct {
	Base
	BillNumber   string          `json:"billNumber"`
	CustomerName string          `json:"customerName"`
	Items        []BillItem      `json:"items"`
	Discount     decimal.Decimal `json:"discount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Date         time.Time       `json:"date"`
}

// Clone copies the line items.
func (b Bill) Clone() Bill {
	if b.Items != nil {
		items := make([]BillItem, len(b.Items))
		copy(items, b.Items)
		b.Items = items
	}
	return b
}

// Scrap is leftover material sold by weight.
type Scrap struct {
	Base
	MaterialType string          `json:"materialType"`
	Weight       float64         `json:"weight"`
	RatePerKg    decimal.Decimal `json:"ratePerKg"`
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
}
