package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/events"
	"github.com/mamadbah2/cableshop/internal/store"
)

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

// ImportProducts upserts spreadsheet rows: a row whose SKU (or, without SKU,
// name) matches an existing product updates it, anything else is created.
func (s *Service) ImportProducts(ctx context.Context, rows []models.ProductImportRow) (ImportResult, error) {
	var (
		result   ImportResult
		warnings []error
	)
	for i, row := range rows {
		existing, found := s.products.Find(func(p models.Product) bool {
			if row.SKU != "" {
				return strings.EqualFold(p.SKU, row.SKU)
			}
			return strings.EqualFold(p.Name, row.Name)
		})

		var err error
		if found {
			qty, reorder := row.Quantity, row.ReorderLevel
			unit, cost := row.UnitPrice, row.CostPrice
			name, category := row.Name, row.Category
			_, _, err = s.UpdateProduct(ctx, existing.ID, ProductPatch{
				Name:         &name,
				Category:     &category,
				Quantity:     &qty,
				ReorderLevel: &reorder,
				UnitPrice:    &unit,
				CostPrice:    &cost,
			})
			if err == nil || store.IsPersistError(err) {
				result.Updated++
			}
		} else {
			_, err = s.CreateProduct(ctx, models.Product{
				Name:         row.Name,
				SKU:          row.SKU,
				Category:     row.Category,
				Quantity:     row.Quantity,
				ReorderLevel: row.ReorderLevel,
				UnitPrice:    row.UnitPrice,
				CostPrice:    row.CostPrice,
			})
			if err == nil || store.IsPersistError(err) {
				result.Created++
			}
		}

		switch {
		case err == nil:
		case store.IsPersistError(err):
			warnings = append(warnings, err)
		default:
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d (%s): %v", i+1, row.Name, err))
		}
	}

	s.logger.Info("product import finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)))
	if s.bus != nil && result.Created+result.Updated > 0 {
		s.bus.Publish(ctx, events.TopicStockUpdated)
	}
	return result, errors.Join(warnings...)
}
