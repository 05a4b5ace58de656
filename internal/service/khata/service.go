// Package khata keeps free-form running accounts.
package khata

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
	ErrKhataNotFound = errors.New("khata not found")
	ErrKhataNotEmpty = errors.New("khata still has entries")
	ErrInvalidEntry  = errors.New("invalid khata entry")
)

// Service manages khatas and their entries.
type Service struct {
	khatas  *store.KhataStore
	entries *store.KhataEntryStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the khata service.
func NewService(khatas *store.KhataStore, entries *store.KhataEntryStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{khatas: khatas, entries: entries, logger: logger, now: time.Now}
}

// CreateKhata opens a new account.
func (s *Service) CreateKhata(ctx context.Context, k models.CustomKhata) (models.CustomKhata, error) {
	k.Name = strings.TrimSpace(k.Name)
	if k.Name == "" {
		return models.CustomKhata{}, fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	return s.khatas.Create(ctx, k)
}

// UpdateKhata renames an account.
func (s *Service) UpdateKhata(ctx context.Context, id int64, name, description string) (models.CustomKhata, bool, error) {
	name = strings.TrimSpace(name)
	return s.khatas.Update(ctx, id, func(k *models.CustomKhata) error {
		if name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidEntry)
		}
		k.Name = name
		k.Description = description
		return nil
	})
}

// DeleteKhata removes an empty account.
func (s *Service) DeleteKhata(ctx context.Context, id int64) (bool, error) {
	if _, has := s.entries.Find(func(e models.KhataEntry) bool { return e.KhataID == id }); has {
		return true, ErrKhataNotEmpty
	}
	return s.khatas.Delete(ctx, id)
}

// Khata returns one account.
func (s *Service) Khata(id int64) (models.CustomKhata, bool) {
	return s.khatas.Get(id)
}

// Khatas lists accounts.
func (s *Service) Khatas() []models.CustomKhata {
	return s.khatas.List()
}

// AddEntry appends a debit or credit line.
func (s *Service) AddEntry(ctx context.Context, e models.KhataEntry) (models.KhataEntry, error) {
	if _, ok := s.khatas.Get(e.KhataID); !ok {
		return models.KhataEntry{}, ErrKhataNotFound
	}
	if err := validateEntry(e); err != nil {
		return models.KhataEntry{}, err
	}
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}
	return s.entries.Create(ctx, e)
}

// EntryPatch is a partial entry update.
type EntryPatch struct {
	Date        *time.Time       `json:"date"`
	Description *string          `json:"description"`
	Debit       *decimal.Decimal `json:"debit"`
	Credit      *decimal.Decimal `json:"credit"`
}

// UpdateEntry merges patch into an entry.
func (s *Service) UpdateEntry(ctx context.Context, id int64, patch EntryPatch) (models.KhataEntry, bool, error) {
	return s.entries.Update(ctx, id, func(e *models.KhataEntry) error {
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.Description != nil {
			e.Description = *patch.Description
		}
		if patch.Debit != nil {
			e.Debit = *patch.Debit
		}
		if patch.Credit != nil {
			e.Credit = *patch.Credit
		}
		return validateEntry(*e)
	})
}

// DeleteEntry removes an entry.
func (s *Service) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	return s.entries.Delete(ctx, id)
}

// Ledger returns the entries of a khata in date order with running balances.
func (s *Service) Ledger(khataID int64) ([]reporting.LedgerLine, bool) {
	if _, ok := s.khatas.Get(khataID); !ok {
		return nil, false
	}
	entries := s.entries.Filter(func(e models.KhataEntry) bool { return e.KhataID == khataID })
	return reporting.LedgerOrder(entries), true
}

// Balance is debit minus credit over every entry of the khata.
func (s *Service) Balance(khataID int64) decimal.Decimal {
	entries := s.entries.Filter(func(e models.KhataEntry) bool { return e.KhataID == khataID })
	return reporting.Sum(entries, func(e models.KhataEntry) decimal.Decimal { return e.Debit.Sub(e.Credit) })
}

func validateEntry(e models.KhataEntry) error {
	switch {
	case e.Debit.IsNegative() || e.Credit.IsNegative():
		return fmt.Errorf("%w: debit and credit must not be negative", ErrInvalidEntry)
	case e.Debit.IsZero() && e.Credit.IsZero():
		return fmt.Errorf("%w: debit or credit is required", ErrInvalidEntry)
	}
	return nil
}
