package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mamadbah2/cableshop/internal/domain/models"
)

// Durable keys of the entity collections. They double as sync entity types.
const (
	KeyStock                 = "stock"
	KeySales                 = "sales"
	KeyRawMaterials          = "raw_materials"
	KeyProcessedRawMaterials = "processed_raw_materials"
	KeyCustomers             = "customers"
	KeyCustomerPurchases     = "customer_purchases"
	KeyEmployees             = "employees"
	KeyDailyPayouts          = "daily_payouts"
	KeyExpenseCategories     = "expense_categories"
	KeyExpenses              = "expenses"
	KeyKhatas                = "khatas"
	KeyKhataEntries          = "khata_entries"
	KeyBills                 = "bills"
	KeyScrap                 = "scrap"
	KeyUsers                 = "users"
)

type (
	ProductStore              = Store[models.Product, *models.Product]
	SaleStore                 = Store[models.Sale, *models.Sale]
	RawMaterialStore          = Store[models.RawMaterial, *models.RawMaterial]
	ProcessedRawMaterialStore = Store[models.ProcessedRawMaterial, *models.ProcessedRawMaterial]
	CustomerStore             = Store[models.Customer, *models.Customer]
	CustomerPurchaseStore     = Store[models.CustomerPurchase, *models.CustomerPurchase]
	EmployeeStore             = Store[models.Employee, *models.Employee]
	DailyPayoutStore          = Store[models.DailyPayout, *models.DailyPayout]
	ExpenseCategoryStore      = Store[models.ExpenseCategory, *models.ExpenseCategory]
	ExpenseStore              = Store[models.Expense, *models.Expense]
	KhataStore                = Store[models.CustomKhata, *models.CustomKhata]
	KhataEntryStore           = Store[models.KhataEntry, *models.KhataEntry]
	BillStore                 = Store[models.Bill, *models.Bill]
	ScrapStore                = Store[models.Scrap, *models.Scrap]
	UserStore                 = Store[models.User, *models.User]
)

// Collection is the type-independent surface of a store.
type Collection interface {
	Key() string
	Synced() bool
	Len() int
	Dirty() bool
	Flush(ctx context.Context) error
	Reload(ctx context.Context) error
	SyncPayload(ctx context.Context) (json.RawMessage, error)
}

// Collections holds every entity store of the application.
type Collections struct {
	Products              *ProductStore
	Sales                 *SaleStore
	RawMaterials          *RawMaterialStore
	ProcessedRawMaterials *ProcessedRawMaterialStore
	Customers             *CustomerStore
	CustomerPurchases     *CustomerPurchaseStore
	Employees             *EmployeeStore
	DailyPayouts          *DailyPayoutStore
	ExpenseCategories     *ExpenseCategoryStore
	Expenses              *ExpenseStore
	Khatas                *KhataStore
	KhataEntries          *KhataEntryStore
	Bills                 *BillStore
	Scrap                 *ScrapStore
	Users                 *UserStore
}

// Open builds and hydrates every store.
func Open(ctx context.Context, deps Deps) (*Collections, error) {
	var (
		c   Collections
		err error
	)
	named := func(key string) Deps {
		d := deps
		if d.Logger != nil {
			d.Logger = d.Logger.Named("store." + key)
		}
		return d
	}

	if c.Products, err = New[models.Product](ctx, named(KeyStock), Config[models.Product]{Key: KeyStock, Order: Append}); err != nil {
		return nil, err
	}
	if c.Sales, err = New[models.Sale](ctx, named(KeySales), Config[models.Sale]{Key: KeySales, Order: NewestFirst, Migrate: migrateSale}); err != nil {
		return nil, err
	}
	if c.RawMaterials, err = New[models.RawMaterial](ctx, named(KeyRawMaterials), Config[models.RawMaterial]{Key: KeyRawMaterials, Order: NewestFirst, Migrate: migrateRawMaterial}); err != nil {
		return nil, err
	}
	if c.ProcessedRawMaterials, err = New[models.ProcessedRawMaterial](ctx, named(KeyProcessedRawMaterials), Config[models.ProcessedRawMaterial]{
		Key:     KeyProcessedRawMaterials,
		Order:   NewestFirst,
		Migrate: migrateProcessed,
		Clone:   models.ProcessedRawMaterial.Clone,
	}); err != nil {
		return nil, err
	}
	if c.Customers, err = New[models.Customer](ctx, named(KeyCustomers), Config[models.Customer]{Key: KeyCustomers, Order: Append}); err != nil {
		return nil, err
	}
	if c.CustomerPurchases, err = New[models.CustomerPurchase](ctx, named(KeyCustomerPurchases), Config[models.CustomerPurchase]{Key: KeyCustomerPurchases, Order: NewestFirst}); err != nil {
		return nil, err
	}
	if c.Employees, err = New[models.Employee](ctx, named(KeyEmployees), Config[models.Employee]{Key: KeyEmployees, Order: Append}); err != nil {
		return nil, err
	}
	if c.DailyPayouts, err = New[models.DailyPayout](ctx, named(KeyDailyPayouts), Config[models.DailyPayout]{Key: KeyDailyPayouts, Order: NewestFirst}); err != nil {
		return nil, err
	}
	if c.ExpenseCategories, err = New[models.ExpenseCategory](ctx, named(KeyExpenseCategories), Config[models.ExpenseCategory]{Key: KeyExpenseCategories, Order: Append}); err != nil {
		return nil, err
	}
	if c.Expenses, err = New[models.Expense](ctx, named(KeyExpenses), Config[models.Expense]{Key: KeyExpenses, Order: NewestFirst}); err != nil {
		return nil, err
	}
	if c.Khatas, err = New[models.CustomKhata](ctx, named(KeyKhatas), Config[models.CustomKhata]{Key: KeyKhatas, Order: Append}); err != nil {
		return nil, err
	}
	if c.KhataEntries, err = New[models.KhataEntry](ctx, named(KeyKhataEntries), Config[models.KhataEntry]{Key: KeyKhataEntries, Order: NewestFirst}); err != nil {
		return nil, err
	}
	if c.Bills, err = New[models.Bill](ctx, named(KeyBills), Config[models.Bill]{Key: KeyBills, Order: NewestFirst, Migrate: migrateBill, Clone: models.Bill.Clone}); err != nil {
		return nil, err
	}
	if c.Scrap, err = New[models.Scrap](ctx, named(KeyScrap), Config[models.Scrap]{Key: KeyScrap, Order: NewestFirst}); err != nil {
		return nil, err
	}
	if c.Users, err = New[models.User](ctx, named(KeyUsers), Config[models.User]{Key: KeyUsers, Order: Append, LocalOnly: true}); err != nil {
		return nil, err
	}
	return &c, nil
}

// All returns every store in a fixed order.
func (c *Collections) All() []Collection {
	return []Collection{
		c.Products, c.Sales, c.RawMaterials, c.ProcessedRawMaterials,
		c.Customers, c.CustomerPurchases, c.Employees, c.DailyPayouts,
		c.ExpenseCategories, c.Expenses, c.Khatas, c.KhataEntries,
		c.Bills, c.Scrap, c.Users,
	}
}

// FlushAll retries every dirty store and reports the first failure.
func (c *Collections) FlushAll(ctx context.Context) error {
	var first error
	for _, col := range c.All() {
		if err := col.Flush(ctx); err != nil && first == nil {
			first = fmt.Errorf("flush %s: %w", col.Key(), err)
		}
	}
	return first
}

// Older sales were stored without a final amount.
func migrateSale(s *models.Sale) {
	if s.TotalAmount.IsZero() && s.Quantity > 0 {
		s.TotalAmount, s.FinalAmount = models.SaleAmounts(s.Quantity, s.UnitPrice, s.Discount)
	}
	if s.SaleDate.IsZero() {
		s.SaleDate = s.CreatedAt
	}
}

// Batches written before the remaining balance existed only carried the intake.
func migrateRawMaterial(m *models.RawMaterial) {
	if m.OriginalQuantity == 0 && m.Quantity > 0 {
		m.OriginalQuantity = m.Quantity
	}
	if m.Quantity > m.OriginalQuantity {
		m.Quantity = m.OriginalQuantity
	}
	if m.Date.IsZero() {
		m.Date = m.CreatedAt
	}
}

func migrateProcessed(p *models.ProcessedRawMaterial) {
	if p.OutputQuantity == 0 {
		p.OutputQuantity = float64(p.NumberOfBundles) * p.WeightPerBundle
	}
	if p.RawMaterialBatchesUsed == nil {
		p.RawMaterialBatchesUsed = []models.RawMaterialBatchUsed{}
	}
	if p.Date.IsZero() {
		p.Date = p.CreatedAt
	}
}

func migrateBill(b *models.Bill) {
	for i := range b.Items {
		if b.Items[i].LineTotal.IsZero() {
			b.Items[i].LineTotal = models.LineTotal(b.Items[i].Quantity, b.Items[i].UnitPrice)
		}
	}
}
