// Package materials tracks raw material lots and the processed batches made from them.
package materials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/store"
)

var (
	ErrRawMaterialNotFound     = errors.New("raw material not found")
	ErrProcessedNotFound       = errors.New("processed batch not found")
	ErrRawMaterialLocked       = errors.New("raw material is used by a processed batch and cannot be changed")
	ErrInsufficientRawMaterial = errors.New("not enough raw material remaining")
	ErrUsageExceedsOutput      = errors.New("used quantity would exceed batch output")
	ErrInvalidMaterial         = errors.New("invalid material")
)

const (
	rawBatchPrefix       = "RM"
	processedBatchPrefix = "PM"
)

// Service manages raw and processed materials.
type Service struct {
	raw       *store.RawMaterialStore
	processed *store.ProcessedRawMaterialStore
	logger    *zap.Logger
	now       func() time.Time

	// mu serializes operations spanning both stores.
	mu sync.Mutex
}

// NewService wires the materials service.
func NewService(raw *store.RawMaterialStore, processed *store.ProcessedRawMaterialStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{raw: raw, processed: processed, logger: logger, now: time.Now}
}

// NewBatchID returns an identifier such as RM-20240510-3F9A1C.
func NewBatchID(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

// AddRawMaterial records a new lot. Its remaining quantity starts at the intake.
func (s *Service) AddRawMaterial(ctx context.Context, m models.RawMaterial) (models.RawMaterial, error) {
	m.MaterialType = strings.TrimSpace(m.MaterialType)
	if m.MaterialType == "" {
		return models.RawMaterial{}, fmt.Errorf("%w: material type is required", ErrInvalidMaterial)
	}
	if m.Quantity <= 0 {
		return models.RawMaterial{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidMaterial)
	}
	if m.CostPerUnit.IsNegative() {
		return models.RawMaterial{}, fmt.Errorf("%w: cost must not be negative", ErrInvalidMaterial)
	}
	now := s.now().UTC()
	if m.Date.IsZero() {
		m.Date = now
	}
	m.OriginalQuantity = m.Quantity
	m.BatchID = NewBatchID(rawBatchPrefix, m.Date)
	return s.raw.Create(ctx, m)
}

// RawMaterialPatch is a partial update of an unused lot. Quantity resets both
// the intake and the remaining balance.
type RawMaterialPatch struct {
	MaterialType *string          `json:"materialType"`
	Supplier     *string          `json:"supplier"`
	Quantity     *float64         `json:"quantity"`
	Unit         *string          `json:"unit"`
	CostPerUnit  *decimal.Decimal `json:"costPerUnit"`
	Date         *time.Time       `json:"date"`
}

// UpdateRawMaterial edits a lot no processed batch has drawn from.
func (s *Service) UpdateRawMaterial(ctx context.Context, id int64, patch RawMaterialPatch) (models.RawMaterial, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockedLocked(id) {
		return models.RawMaterial{}, true, ErrRawMaterialLocked
	}
	return s.raw.Update(ctx, id, func(m *models.RawMaterial) error {
		if patch.MaterialType != nil {
			m.MaterialType = strings.TrimSpace(*patch.MaterialType)
		}
		if patch.Supplier != nil {
			m.Supplier = *patch.Supplier
		}
		if patch.Quantity != nil {
			if *patch.Quantity <= 0 {
				return fmt.Errorf("%w: quantity must be positive", ErrInvalidMaterial)
			}
			m.OriginalQuantity = *patch.Quantity
			m.Quantity = *patch.Quantity
		}
		if patch.Unit != nil {
			m.Unit = *patch.Unit
		}
		if patch.CostPerUnit != nil {
			m.CostPerUnit = *patch.CostPerUnit
		}
		if patch.Date != nil {
			m.Date = *patch.Date
		}
		if m.MaterialType == "" {
			return fmt.Errorf("%w: material type is required", ErrInvalidMaterial)
		}
		return nil
	})
}

// DeleteRawMaterial removes a lot no processed batch has drawn from.
func (s *Service) DeleteRawMaterial(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockedLocked(id) {
		return true, ErrRawMaterialLocked
	}
	return s.raw.Delete(ctx, id)
}

// IsLocked reports whether any processed batch references the lot.
func (s *Service) IsLocked(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedLocked(id)
}

// RawMaterial returns one lot.
func (s *Service) RawMaterial(id int64) (models.RawMaterial, bool) {
	return s.raw.Get(id)
}

// RawMaterials lists lots, newest first. With availableOnly, exhausted lots are skipped.
func (s *Service) RawMaterials(availableOnly bool) []models.RawMaterial {
	return s.raw.Filter(func(m models.RawMaterial) bool { return !availableOnly || m.Quantity > 0 })
}

// BatchInput names a raw lot and how much of it a processed batch consumes.
type BatchInput struct {
	RawMaterialID int64   `json:"rawMaterialId"`
	Quantity      float64 `json:"quantity"`
}

// ProcessInput describes a production run.
type ProcessInput struct {
	Name            string       `json:"name"`
	NumberOfBundles int          `json:"numberOfBundles"`
	WeightPerBundle float64      `json:"weightPerBundle"`
	Inputs          []BatchInput `json:"inputs"`
	Date            time.Time    `json:"date"`
}

// ProcessBatch draws the inputs from their raw lots and records the processed
// batch with its provenance. Every input is checked before any lot is touched;
// a lot write that still fails puts back what was already drawn.
func (s *Service) ProcessBatch(ctx context.Context, in ProcessInput) (models.ProcessedRawMaterial, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return models.ProcessedRawMaterial{}, fmt.Errorf("%w: name is required", ErrInvalidMaterial)
	case in.NumberOfBundles <= 0 || in.WeightPerBundle <= 0:
		return models.ProcessedRawMaterial{}, fmt.Errorf("%w: bundles and weight per bundle must be positive", ErrInvalidMaterial)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	needed := make(map[int64]float64, len(in.Inputs))
	for _, input := range in.Inputs {
		if input.Quantity <= 0 {
			return models.ProcessedRawMaterial{}, fmt.Errorf("%w: input quantity must be positive", ErrInvalidMaterial)
		}
		needed[input.RawMaterialID] += input.Quantity
	}
	for id, qty := range needed {
		lot, ok := s.raw.Get(id)
		if !ok {
			return models.ProcessedRawMaterial{}, fmt.Errorf("%w: %d", ErrRawMaterialNotFound, id)
		}
		if lot.Quantity < qty {
			return models.ProcessedRawMaterial{}, fmt.Errorf("%w: %s has %.3f, needs %.3f", ErrInsufficientRawMaterial, lot.BatchID, lot.Quantity, qty)
		}
	}

	usedAt := s.now().UTC()
	date := in.Date
	if date.IsZero() {
		date = usedAt
	}

	var (
		provenance = make([]models.RawMaterialBatchUsed, 0, len(in.Inputs))
		warnings   []error
		drawn      []BatchInput
	)
	for _, input := range in.Inputs {
		lot, ok, err := s.raw.Update(ctx, input.RawMaterialID, func(m *models.RawMaterial) error {
			if m.Quantity < input.Quantity {
				return ErrInsufficientRawMaterial
			}
			m.Quantity -= input.Quantity
			return nil
		})
		if !ok || (err != nil && !store.IsPersistError(err)) {
			s.restoreLocked(ctx, drawn)
			if err == nil {
				err = ErrRawMaterialNotFound
			}
			return models.ProcessedRawMaterial{}, err
		}
		if err != nil {
			warnings = append(warnings, err)
		}
		drawn = append(drawn, input)
		provenance = append(provenance, models.RawMaterialBatchUsed{
			RawMaterialID: lot.ID,
			BatchID:       lot.BatchID,
			QuantityUsed:  input.Quantity,
			UsedAt:        usedAt,
		})
	}

	batch, err := s.processed.Create(ctx, models.ProcessedRawMaterial{
		BatchID:                NewBatchID(processedBatchPrefix, date),
		Name:                   in.Name,
		NumberOfBundles:        in.NumberOfBundles,
		WeightPerBundle:        in.WeightPerBundle,
		OutputQuantity:         float64(in.NumberOfBundles) * in.WeightPerBundle,
		RawMaterialBatchesUsed: provenance,
		Date:                   date,
	})
	if err != nil {
		warnings = append(warnings, err)
	}

	s.logger.Info("processed batch recorded",
		zap.String("batch_id", batch.BatchID),
		zap.Int("inputs", len(provenance)),
		zap.Float64("output", batch.OutputQuantity))
	return batch, errors.Join(warnings...)
}

// ProcessedPatch edits a processed batch. Output is recomputed and may not drop below what was used.
type ProcessedPatch struct {
	Name            *string    `json:"name"`
	NumberOfBundles *int       `json:"numberOfBundles"`
	WeightPerBundle *float64   `json:"weightPerBundle"`
	Date            *time.Time `json:"date"`
}

// UpdateProcessed applies patch to a processed batch. Provenance is never rewritten.
func (s *Service) UpdateProcessed(ctx context.Context, id int64, patch ProcessedPatch) (models.ProcessedRawMaterial, bool, error) {
	return s.processed.Update(ctx, id, func(p *models.ProcessedRawMaterial) error {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.NumberOfBundles != nil {
			p.NumberOfBundles = *patch.NumberOfBundles
		}
		if patch.WeightPerBundle != nil {
			p.WeightPerBundle = *patch.WeightPerBundle
		}
		if patch.Date != nil {
			p.Date = *patch.Date
		}
		if p.NumberOfBundles <= 0 || p.WeightPerBundle <= 0 {
			return fmt.Errorf("%w: bundles and weight per bundle must be positive", ErrInvalidMaterial)
		}
		p.OutputQuantity = float64(p.NumberOfBundles) * p.WeightPerBundle
		if p.UsedQuantity > p.OutputQuantity {
			return ErrUsageExceedsOutput
		}
		return nil
	})
}

// ConsumeProcessed records qty of a processed batch as used.
func (s *Service) ConsumeProcessed(ctx context.Context, id int64, qty float64) (models.ProcessedRawMaterial, error) {
	if qty <= 0 {
		return models.ProcessedRawMaterial{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidMaterial)
	}
	batch, ok, err := s.processed.Update(ctx, id, func(p *models.ProcessedRawMaterial) error {
		if p.UsedQuantity+qty > p.OutputQuantity {
			return fmt.Errorf("%w: %.3f of %.3f already used", ErrUsageExceedsOutput, p.UsedQuantity, p.OutputQuantity)
		}
		p.UsedQuantity += qty
		return nil
	})
	if !ok {
		return models.ProcessedRawMaterial{}, ErrProcessedNotFound
	}
	return batch, err
}

// DeleteProcessed removes a processed batch and returns its drawn quantities to
// the raw lots that still exist, which also unlocks them.
func (s *Service) DeleteProcessed(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.processed.Get(id)
	if !ok {
		return false, nil
	}
	_, err := s.processed.Delete(ctx, id)
	if err != nil && !store.IsPersistError(err) {
		return true, err
	}
	drawn := make([]BatchInput, 0, len(batch.RawMaterialBatchesUsed))
	for _, used := range batch.RawMaterialBatchesUsed {
		drawn = append(drawn, BatchInput{RawMaterialID: used.RawMaterialID, Quantity: used.QuantityUsed})
	}
	s.restoreLocked(ctx, drawn)
	return true, err
}

// ProcessedBatch returns one processed batch.
func (s *Service) ProcessedBatch(id int64) (models.ProcessedRawMaterial, bool) {
	return s.processed.Get(id)
}

// ProcessedBatches lists processed batches, newest first.
func (s *Service) ProcessedBatches() []models.ProcessedRawMaterial {
	return s.processed.List()
}

// BatchesUsing lists the processed batches that drew from a raw lot.
func (s *Service) BatchesUsing(rawMaterialID int64) []models.ProcessedRawMaterial {
	return s.processed.Filter(func(p models.ProcessedRawMaterial) bool { return p.Uses(rawMaterialID) })
}

func (s *Service) lockedLocked(id int64) bool {
	_, used := s.processed.Find(func(p models.ProcessedRawMaterial) bool { return p.Uses(id) })
	return used
}

func (s *Service) restoreLocked(ctx context.Context, drawn []BatchInput) {
	for _, input := range drawn {
		_, ok, err := s.raw.Update(ctx, input.RawMaterialID, func(m *models.RawMaterial) error {
			m.Quantity = min(m.OriginalQuantity, m.Quantity+input.Quantity)
			return nil
		})
		if !ok {
			s.logger.Warn("raw material gone while restoring drawn quantity", zap.Int64("raw_material_id", input.RawMaterialID))
			continue
		}
		if err != nil {
			s.logger.Error("failed to restore raw material quantity", zap.Int64("raw_material_id", input.RawMaterialID), zap.Error(err))
		}
	}
}
