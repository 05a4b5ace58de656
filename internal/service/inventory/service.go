// Package inventory manages the product catalog, stock levels and sales.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/events"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidDiscount   = errors.New("discount must not be negative")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrDuplicateSKU      = errors.New("sku already in use")
	ErrSaleNotFound      = errors.New("sale not found")
)

// Service owns the stock and sales collections.
type Service struct {
	products *store.ProductStore
	sales    *store.SaleStore
	bus      *events.Bus
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the service and subscribes the product store to stock notifications.
func NewService(products *store.ProductStore, sales *store.SaleStore, bus *events.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		products: products,
		sales:    sales,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
	if bus != nil {
		bus.Subscribe(events.TopicStockUpdated, s.reloadProducts)
	}
	return s
}

// ProductPatch carries the fields of a partial product update. Nil fields are left alone.
type ProductPatch struct {
	Name         *string          `json:"name"`
	SKU          *string          `json:"sku"`
	Category     *string          `json:"category"`
	Quantity     *int             `json:"quantity"`
	ReorderLevel *int             `json:"reorderLevel"`
	Bundles      *int             `json:"bundles"`
	Foot         *float64         `json:"foot"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
	CostPrice    *decimal.Decimal `json:"costPrice"`
	Archived     *bool            `json:"archived"`
}

func (p ProductPatch) apply(dst *models.Product) {
	if p.Name != nil {
		dst.Name = strings.TrimSpace(*p.Name)
	}
	if p.SKU != nil {
		dst.SKU = strings.TrimSpace(*p.SKU)
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Quantity != nil {
		dst.Quantity = *p.Quantity
	}
	if p.ReorderLevel != nil {
		dst.ReorderLevel = *p.ReorderLevel
	}
	if p.Bundles != nil {
		dst.Bundles = *p.Bundles
	}
	if p.Foot != nil {
		dst.Foot = *p.Foot
	}
	if p.UnitPrice != nil {
		dst.UnitPrice = *p.UnitPrice
	}
	if p.CostPrice != nil {
		dst.CostPrice = *p.CostPrice
	}
	if p.Archived != nil {
		dst.Archived = *p.Archived
	}
}

func validateProduct(p models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	case p.ReorderLevel < 0:
		return fmt.Errorf("%w: reorder level must not be negative", ErrInvalidProduct)
	case p.Bundles < 0 || p.Foot < 0:
		return fmt.Errorf("%w: bundles and foot must not be negative", ErrInvalidProduct)
	case p.UnitPrice.IsNegative() || p.CostPrice.IsNegative():
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidProduct)
	}
	return nil
}

// CreateProduct adds a product to the catalog.
func (s *Service) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}
	if s.skuTaken(p.SKU, 0) {
		return models.Product{}, fmt.Errorf("%w: %s", ErrDuplicateSKU, p.SKU)
	}
	return s.products.Create(ctx, p)
}

// UpdateProduct merges patch into the product. ok is false when id is unknown.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (models.Product, bool, error) {
	if patch.SKU != nil {
		if sku := strings.TrimSpace(*patch.SKU); s.skuTaken(sku, id) {
			return models.Product{}, true, fmt.Errorf("%w: %s", ErrDuplicateSKU, sku)
		}
	}
	return s.products.Update(ctx, id, func(p *models.Product) error {
		patch.apply(p)
		return validateProduct(*p)
	})
}

// DeleteProduct removes a product. Past sales keep their copy of the name.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	return s.products.Delete(ctx, id)
}

// Product returns one product.
func (s *Service) Product(id int64) (models.Product, bool) {
	return s.products.Get(id)
}

// Products lists the catalog, archived products only when asked.
func (s *Service) Products(includeArchived bool) []models.Product {
	return s.products.Filter(func(p models.Product) bool {
		return includeArchived || !p.Archived
	})
}

// LowStock lists active products at or below their reorder level.
func (s *Service) LowStock() []models.Product {
	return reporting.LowStock(s.products.List())
}

// SaleInput is a counter sale request. A zero UnitPrice uses the product price.
type SaleInput struct {
	ProductID    int64           `json:"productId"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Discount     decimal.Decimal `json:"discount"`
	CustomerName string          `json:"customerName"`
	SaleDate     time.Time       `json:"saleDate"`
	Notes        string          `json:"notes"`
}

// RecordSale takes the sold quantity out of stock and logs the sale. The stock
// check and decrement happen under the product store lock, so stock never goes
// negative; the sale record is a second, separate write.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (models.Sale, error) {
	if in.Quantity <= 0 {
		return models.Sale{}, ErrInvalidQuantity
	}
	if in.Discount.IsNegative() {
		return models.Sale{}, ErrInvalidDiscount
	}

	product, ok, err := s.products.Update(ctx, in.ProductID, func(p *models.Product) error {
		if p.Quantity < in.Quantity {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, p.Name, p.Quantity, in.Quantity)
		}
		p.Quantity -= in.Quantity
		return nil
	})
	if !ok {
		return models.Sale{}, ErrProductNotFound
	}
	var warnings []error
	if err != nil {
		if !store.IsPersistError(err) {
			return models.Sale{}, err
		}
		warnings = append(warnings, err)
	}

	unitPrice := in.UnitPrice
	if unitPrice.IsZero() {
		unitPrice = product.UnitPrice
	}
	saleDate := in.SaleDate
	if saleDate.IsZero() {
		saleDate = s.now().UTC()
	}
	total, final := models.SaleAmounts(in.Quantity, unitPrice, in.Discount)

	sale, err := s.sales.Create(ctx, models.Sale{
		ProductID:    product.ID,
		ProductName:  product.Name,
		Quantity:     in.Quantity,
		UnitPrice:    unitPrice,
		Discount:     in.Discount,
		TotalAmount:  total,
		FinalAmount:  final,
		CustomerName: strings.TrimSpace(in.CustomerName),
		SaleDate:     saleDate,
		Notes:        in.Notes,
	})
	if err != nil {
		warnings = append(warnings, err)
	}

	if product.IsLowStock() && !product.Archived {
		s.logger.Warn("product reached reorder level",
			zap.Int64("product_id", product.ID),
			zap.String("name", product.Name),
			zap.Int("quantity", product.Quantity),
			zap.Int("reorder_level", product.ReorderLevel))
	}
	return sale, errors.Join(warnings...)
}

// SalePatch edits the descriptive fields of a sale. Quantities and amounts are fixed once recorded.
type SalePatch struct {
	CustomerName *string    `json:"customerName"`
	Notes        *string    `json:"notes"`
	SaleDate     *time.Time `json:"saleDate"`
}

// UpdateSale applies a correction to a recorded sale.
func (s *Service) UpdateSale(ctx context.Context, id int64, patch SalePatch) (models.Sale, bool, error) {
	return s.sales.Update(ctx, id, func(sale *models.Sale) error {
		if patch.CustomerName != nil {
			sale.CustomerName = strings.TrimSpace(*patch.CustomerName)
		}
		if patch.Notes != nil {
			sale.Notes = *patch.Notes
		}
		if patch.SaleDate != nil {
			sale.SaleDate = *patch.SaleDate
		}
		return nil
	})
}

// DeleteSale removes a sale and returns its quantity to stock when the product still exists.
func (s *Service) DeleteSale(ctx context.Context, id int64) (bool, error) {
	sale, ok := s.sales.Get(id)
	if !ok {
		return false, nil
	}
	if _, err := s.sales.Delete(ctx, id); err != nil {
		return true, err
	}
	_, found, err := s.products.Update(ctx, sale.ProductID, func(p *models.Product) error {
		p.Quantity += sale.Quantity
		return nil
	})
	if !found {
		s.logger.Info("sale deleted for a product no longer in the catalog", zap.Int64("sale_id", id))
	}
	return true, err
}

// Sale returns one sale.
func (s *Service) Sale(id int64) (models.Sale, bool) {
	return s.sales.Get(id)
}

// Sales lists sales dated inside r, newest recorded first.
func (s *Service) Sales(r reporting.Range) []models.Sale {
	return s.sales.Filter(func(sale models.Sale) bool { return r.Contains(sale.SaleDate) })
}

// RecentSales returns the n latest sales by sale date.
func (s *Service) RecentSales(n int) []models.Sale {
	return reporting.RecentN(s.sales.List(), saleDate, n)
}

// SalesTotal is the sum of final amounts of the sales inside r.
func (s *Service) SalesTotal(r reporting.Range) decimal.Decimal {
	return reporting.PeriodTotal(s.sales.List(), saleDate, func(sale models.Sale) decimal.Decimal { return sale.FinalAmount }, r)
}

func saleDate(sale models.Sale) time.Time { return sale.SaleDate }

func (s *Service) skuTaken(sku string, exceptID int64) bool {
	if sku == "" {
		return false
	}
	_, found := s.products.Find(func(p models.Product) bool {
		return p.ID != exceptID && strings.EqualFold(p.SKU, sku)
	})
	return found
}

func (s *Service) reloadProducts(ctx context.Context) {
	reloaded, err := s.products.ReloadIfClean(ctx)
	if err != nil {
		s.logger.Error("failed to reload stock", zap.Error(err))
		return
	}
	if !reloaded {
		s.logger.Warn("skipping stock reload while unsaved changes are pending")
	}
}
