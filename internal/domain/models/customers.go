package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a buyer with a running account.
type Customer struct {
	Base
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomerPurchase is cable taken by a customer on account. Creating, editing
// and deleting a purchase moves the matching product's bundles and foot.
// StockProductID and StockTaken record what the purchase currently holds out
// of stock, after clamping, so edits and deletion give back exactly that.
type CustomerPurchase struct {
	Base
	CustomerID      int64           `json:"customerId"`
	ProductName     string          `json:"productName"`
	QuantityBundles int             `json:"quantityBundles"`
	QuantityFoot    float64         `json:"quantityFoot"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	Date            time.Time       `json:"date"`
	Notes           string          `json:"notes,omitempty"`
	StockProductID  int64           `json:"stockProductId,omitempty"`
	StockTaken      StockDelta      `json:"stockTaken"`
}

// Outstanding is the unpaid part of the purchase.
func (p CustomerPurchase) Outstanding() decimal.Decimal {
	return p.TotalAmount.Sub(p.PaidAmount)
}
