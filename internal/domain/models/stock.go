package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with its on-hand stock. Cable stock is also tracked
// as whole bundles plus loose foot.
type Product struct {
	Base
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category,omitempty"`
	Quantity     int             `json:"quantity"`
	ReorderLevel int             `json:"reorderLevel"`
	Bundles      int             `json:"bundles"`
	Foot         float64         `json:"foot"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	Archived     bool            `json:"archived,omitempty"`
}

// IsLowStock reports whether the quantity has reached the reorder level.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.ReorderLevel
}

// StockDelta is a signed change to a product's bundle and foot counts.
type StockDelta struct {
	Bundles int     `json:"bundles"`
	Foot    float64 `json:"foot"`
}

// IsZero reports whether the delta changes nothing.
func (d StockDelta) IsZero() bool { return d.Bundles == 0 && d.Foot == 0 }

// Negate returns the opposite delta.
func (d StockDelta) Negate() StockDelta { return StockDelta{Bundles: -d.Bundles, Foot: -d.Foot} }

// StockChange is a product after an adjustment together with the delta that
// actually landed once both counts were floored at zero.
type StockChange struct {
	Product Product
	Applied StockDelta
}

// Sale records a product sold over the counter.
type Sale struct {
	Base
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Discount     decimal.Decimal `json:"discount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	FinalAmount  decimal.Decimal `json:"finalAmount"`
	CustomerName string          `json:"customerName,omitempty"`
	SaleDate     time.Time       `json:"saleDate"`
	Notes        string          `json:"notes,omitempty"`
}

// SaleAmounts computes the gross total and the discounted final amount.
// The final amount is not clamped and may be negative when the discount exceeds the total.
func SaleAmounts(quantity int, unitPrice, discount decimal.Decimal) (total, final decimal.Decimal) {
	total = unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return total, total.Sub(discount)
}

// ProductImportRow is one product parsed from a spreadsheet import.
type ProductImportRow struct {
	Name         string
	SKU          string
	Category     string
	Quantity     int
	ReorderLevel int
	UnitPrice    decimal.Decimal
	CostPrice    decimal.Decimal
}
