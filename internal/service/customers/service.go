// Package customers keeps customer accounts and their purchases on credit.
package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidCustomer  = errors.New("invalid customer")
	ErrInvalidPurchase  = errors.New("invalid purchase")
)

// StockAdjuster moves product bundle and foot counts on behalf of purchases.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productName string, delta models.StockDelta) (models.StockChange, bool, error)
	AdjustStockByID(ctx context.Context, productID int64, delta models.StockDelta) (models.StockChange, bool, error)
}

// Service manages customers and their purchases.
type Service struct {
	customers *store.CustomerStore
	purchases *store.CustomerPurchaseStore
	stock     StockAdjuster
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the customer service.
func NewService(customers *store.CustomerStore, purchases *store.CustomerPurchaseStore, stock StockAdjuster, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		customers: customers,
		purchases: purchases,
		stock:     stock,
		logger:    logger,
		now:       time.Now,
	}
}

// CustomerPatch is a partial customer update.
type CustomerPatch struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// CreateCustomer opens a customer account.
func (s *Service) CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Customer{}, fmt.Errorf("%w: name is required", ErrInvalidCustomer)
	}
	return s.customers.Create(ctx, c)
}

// UpdateCustomer merges patch into the customer.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, patch CustomerPatch) (models.Customer, bool, error) {
	return s.customers.Update(ctx, id, func(c *models.Customer) error {
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: name is required", ErrInvalidCustomer)
			}
			c.Name = name
		}
		if patch.Phone != nil {
			c.Phone = *patch.Phone
		}
		if patch.Address != nil {
			c.Address = *patch.Address
		}
		return nil
	})
}

// DeleteCustomer removes the account. Purchases are kept; nothing cascades.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) (bool, error) {
	return s.customers.Delete(ctx, id)
}

// Customer returns one customer.
func (s *Service) Customer(id int64) (models.Customer, bool) {
	return s.customers.Get(id)
}

// Customers lists all customers.
func (s *Service) Customers() []models.Customer {
	return s.customers.List()
}

// AddPurchase takes the purchase's bundles and foot out of the product with
// the same name and records the purchase with what was actually taken.
func (s *Service) AddPurchase(ctx context.Context, p models.CustomerPurchase) (models.CustomerPurchase, error) {
	if _, ok := s.customers.Get(p.CustomerID); !ok {
		return models.CustomerPurchase{}, ErrCustomerNotFound
	}
	p.ProductName = strings.TrimSpace(p.ProductName)
	if err := validatePurchase(p); err != nil {
		return models.CustomerPurchase{}, err
	}
	if p.Date.IsZero() {
		p.Date = s.now().UTC()
	}

	productID, taken, stockErr := s.take(ctx, 0, p.ProductName, quantities(p))
	if stockErr != nil && !store.IsPersistError(stockErr) {
		return models.CustomerPurchase{}, stockErr
	}
	p.StockProductID, p.StockTaken = productID, taken

	created, err := s.purchases.Create(ctx, p)
	if err != nil && !store.IsPersistError(err) {
		return models.CustomerPurchase{}, err
	}
	return created, errors.Join(err, stockErr)
}

// PurchasePatch is a partial purchase update.
type PurchasePatch struct {
	ProductName     *string          `json:"productName"`
	QuantityBundles *int             `json:"quantityBundles"`
	QuantityFoot    *float64         `json:"quantityFoot"`
	TotalAmount     *decimal.Decimal `json:"totalAmount"`
	PaidAmount      *decimal.Decimal `json:"paidAmount"`
	Date            *time.Time       `json:"date"`
	Notes           *string          `json:"notes"`
}

// UpdatePurchase merges patch. When the product or quantities change, the
// stock the purchase held is given back and the new quantities are charged.
func (s *Service) UpdatePurchase(ctx context.Context, id int64, patch PurchasePatch) (models.CustomerPurchase, bool, error) {
	var before models.CustomerPurchase
	updated, ok, err := s.purchases.Update(ctx, id, func(p *models.CustomerPurchase) error {
		before = *p
		if patch.ProductName != nil {
			p.ProductName = strings.TrimSpace(*patch.ProductName)
		}
		if patch.QuantityBundles != nil {
			p.QuantityBundles = *patch.QuantityBundles
		}
		if patch.QuantityFoot != nil {
			p.QuantityFoot = *patch.QuantityFoot
		}
		if patch.TotalAmount != nil {
			p.TotalAmount = *patch.TotalAmount
		}
		if patch.PaidAmount != nil {
			p.PaidAmount = *patch.PaidAmount
		}
		if patch.Date != nil {
			p.Date = *patch.Date
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		return validatePurchase(*p)
	})
	if !ok || (err != nil && !store.IsPersistError(err)) {
		return updated, ok, err
	}

	if !holdsChanged(before, updated) {
		return updated, true, err
	}

	// Give back what the old version held, then charge the new quantities.
	// An unchanged product name keeps the product the purchase already holds,
	// even if that product was renamed since.
	productID := int64(0)
	if strings.EqualFold(before.ProductName, updated.ProductName) {
		productID = before.StockProductID
	}
	releaseErr := s.release(ctx, before)
	heldID, taken, takeErr := s.take(ctx, productID, updated.ProductName, quantities(updated))

	held, found, holdErr := s.purchases.Update(ctx, id, func(p *models.CustomerPurchase) error {
		p.StockProductID, p.StockTaken = heldID, taken
		return nil
	})
	if found {
		updated = held
	}
	return updated, true, errors.Join(err, releaseErr, takeErr, holdErr)
}

// DeletePurchase removes the purchase and gives back the stock it held.
func (s *Service) DeletePurchase(ctx context.Context, id int64) (bool, error) {
	purchase, ok := s.purchases.Get(id)
	if !ok {
		return false, nil
	}
	_, err := s.purchases.Delete(ctx, id)
	if err != nil && !store.IsPersistError(err) {
		return true, err
	}
	return true, errors.Join(err, s.release(ctx, purchase))
}

// Purchase returns one purchase.
func (s *Service) Purchase(id int64) (models.CustomerPurchase, bool) {
	return s.purchases.Get(id)
}

// Purchases lists a customer's purchases, newest first.
func (s *Service) Purchases(customerID int64) []models.CustomerPurchase {
	return s.purchases.Filter(func(p models.CustomerPurchase) bool { return p.CustomerID == customerID })
}

// Balance is a customer's account position.
type Balance struct {
	CustomerID  int64           `json:"customerId"`
	Name        string          `json:"name"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Balance totals a customer's purchases.
func (s *Service) Balance(customerID int64) (Balance, bool) {
	c, ok := s.customers.Get(customerID)
	if !ok {
		return Balance{}, false
	}
	purchases := s.Purchases(customerID)
	b := Balance{
		CustomerID: c.ID,
		Name:       c.Name,
		Total:      reporting.Sum(purchases, func(p models.CustomerPurchase) decimal.Decimal { return p.TotalAmount }),
		Paid:       reporting.Sum(purchases, func(p models.CustomerPurchase) decimal.Decimal { return p.PaidAmount }),
	}
	b.Outstanding = b.Total.Sub(b.Paid)
	return b, true
}

// Balances returns every customer's balance in catalog order.
func (s *Service) Balances() []Balance {
	customers := s.customers.List()
	out := make([]Balance, 0, len(customers))
	for _, c := range customers {
		if b, ok := s.Balance(c.ID); ok {
			out = append(out, b)
		}
	}
	return out
}

// take charges q to productID, or to the product named name when productID is
// zero, and returns the product and the amounts actually taken.
func (s *Service) take(ctx context.Context, productID int64, name string, q models.StockDelta) (int64, models.StockDelta, error) {
	if s.stock == nil || q.IsZero() {
		return 0, models.StockDelta{}, nil
	}
	var (
		change models.StockChange
		found  bool
		err    error
	)
	if productID != 0 {
		change, found, err = s.stock.AdjustStockByID(ctx, productID, q.Negate())
	} else {
		change, found, err = s.stock.AdjustStock(ctx, name, q.Negate())
	}
	if !found {
		s.logger.Info("purchase references a product not in stock", zap.String("product", name))
		return 0, models.StockDelta{}, nil
	}
	return change.Product.ID, change.Applied.Negate(), err
}

// release gives back the stock a purchase holds.
func (s *Service) release(ctx context.Context, p models.CustomerPurchase) error {
	if s.stock == nil || p.StockProductID == 0 || p.StockTaken.IsZero() {
		return nil
	}
	_, found, err := s.stock.AdjustStockByID(ctx, p.StockProductID, p.StockTaken)
	if !found {
		s.logger.Info("held stock returned to a product that no longer exists",
			zap.Int64("purchase_id", p.ID), zap.Int64("product_id", p.StockProductID))
	}
	return err
}

func holdsChanged(before, after models.CustomerPurchase) bool {
	return !strings.EqualFold(before.ProductName, after.ProductName) ||
		before.QuantityBundles != after.QuantityBundles ||
		before.QuantityFoot != after.QuantityFoot
}

func quantities(p models.CustomerPurchase) models.StockDelta {
	return models.StockDelta{Bundles: p.QuantityBundles, Foot: p.QuantityFoot}
}

func validatePurchase(p models.CustomerPurchase) error {
	switch {
	case p.ProductName == "":
		return fmt.Errorf("%w: product name is required", ErrInvalidPurchase)
	case p.QuantityBundles < 0 || p.QuantityFoot < 0:
		return fmt.Errorf("%w: quantities must not be negative", ErrInvalidPurchase)
	case p.TotalAmount.IsNegative() || p.PaidAmount.IsNegative():
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidPurchase)
	}
	return nil
}
