package inventory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/events"
	"github.com/mamadbah2/cableshop/internal/store"
)

// AdjustStock applies a signed bundle/foot delta to the product named
// productName, flooring both counts at zero, and broadcasts a stock update.
// The change goes through the product store so the stock key has one writer.
// found is false when no product carries that name.
func (s *Service) AdjustStock(ctx context.Context, productName string, delta models.StockDelta) (models.StockChange, bool, error) {
	target, found := s.productByName(productName)
	if !found {
		s.logger.Warn("stock adjustment for unknown product", zap.String("product", productName))
		return models.StockChange{}, false, nil
	}
	return s.AdjustStockByID(ctx, target.ID, delta)
}

// AdjustStockByID is AdjustStock for a known product id. The returned change
// carries the delta that was applied after clamping.
func (s *Service) AdjustStockByID(ctx context.Context, productID int64, delta models.StockDelta) (models.StockChange, bool, error) {
	if delta.IsZero() {
		p, found := s.products.Get(productID)
		return models.StockChange{Product: p}, found, nil
	}

	var applied models.StockDelta
	updated, ok, err := s.products.Update(ctx, productID, func(p *models.Product) error {
		bundles := max(0, p.Bundles+delta.Bundles)
		foot := max(0, p.Foot+delta.Foot)
		applied = models.StockDelta{Bundles: bundles - p.Bundles, Foot: foot - p.Foot}
		p.Bundles, p.Foot = bundles, foot
		return nil
	})
	if !ok {
		s.logger.Warn("stock adjustment for unknown product id", zap.Int64("product_id", productID))
		return models.StockChange{}, false, nil
	}
	if err != nil && !store.IsPersistError(err) {
		return models.StockChange{}, true, err
	}

	s.logger.Debug("stock adjusted",
		zap.String("product", updated.Name),
		zap.Int("bundles_delta", applied.Bundles),
		zap.Float64("foot_delta", applied.Foot),
		zap.Int("bundles", updated.Bundles),
		zap.Float64("foot", updated.Foot))

	if s.bus != nil {
		s.bus.Publish(ctx, events.TopicStockUpdated)
	}
	return models.StockChange{Product: updated, Applied: applied}, true, err
}

func (s *Service) productByName(name string) (models.Product, bool) {
	name = strings.TrimSpace(name)
	return s.products.Find(func(p models.Product) bool {
		return strings.EqualFold(p.Name, name)
	})
}
