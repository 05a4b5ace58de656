package inventory

import (
	"context"
	"testing"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/events"
	"github.com/mamadbah2/cableshop/internal/repository/durable"
)

func TestAdjustStockClampsAndNotifies(t *testing.T) {
	svc, _ := newTestService(t)
	mustProduct(t, svc, models.Product{Name: "X", Bundles: 10, Foot: 40})

	notified := 0
	svc.bus.Subscribe(events.TopicStockUpdated, func(context.Context) { notified++ })

	got, found, err := svc.AdjustStock(context.Background(), "x", models.StockDelta{Bundles: -3, Foot: -15.5})
	if err != nil || !found {
		t.Fatalf("adjust: found=%v err=%v", found, err)
	}
	if got.Product.Bundles != 7 || got.Product.Foot != 24.5 {
		t.Fatalf("after adjust = %+v", got.Product)
	}
	if got.Applied != (models.StockDelta{Bundles: -3, Foot: -15.5}) {
		t.Fatalf("applied = %+v", got.Applied)
	}

	got, _, _ = svc.AdjustStock(context.Background(), "X", models.StockDelta{Bundles: -50, Foot: -100})
	if got.Product.Bundles != 0 || got.Product.Foot != 0 {
		t.Fatalf("counts should clamp at zero, got %+v", got.Product)
	}
	if got.Applied != (models.StockDelta{Bundles: -7, Foot: -24.5}) {
		t.Fatalf("applied after clamp = %+v, want only what was left", got.Applied)
	}
	if notified != 2 {
		t.Fatalf("notifications = %d, want 2", notified)
	}
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	_, found, err := svc.AdjustStock(context.Background(), "missing", models.StockDelta{Bundles: 1})
	if found || err != nil {
		t.Fatalf("found=%v err=%v", found, err)
	}
}

func TestAdjustStockByID(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustProduct(t, svc, models.Product{Name: "X", Bundles: 4})

	got, found, err := svc.AdjustStockByID(context.Background(), p.ID, models.StockDelta{Bundles: 3})
	if err != nil || !found {
		t.Fatalf("adjust: found=%v err=%v", found, err)
	}
	if got.Product.Bundles != 7 || got.Applied.Bundles != 3 {
		t.Fatalf("change = %+v", got)
	}

	if _, found, _ := svc.AdjustStockByID(context.Background(), p.ID+1000, models.StockDelta{Bundles: 1}); found {
		t.Fatalf("unknown id should not be found")
	}
}

func TestStockNotificationReloadsFromDurableState(t *testing.T) {
	svc, env := newTestService(t)
	p := mustProduct(t, svc, models.Product{Name: "X", Bundles: 10})

	// Simulate another process rewriting the stock key.
	adapter := durable.NewAdapter(env.Backend, nil)
	edited := p
	edited.Bundles = 99
	if err := adapter.Save(context.Background(), "stock", []models.Product{edited}); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc.bus.Publish(context.Background(), events.TopicStockUpdated)

	got, _ := svc.Product(p.ID)
	if got.Bundles != 99 {
		t.Fatalf("bundles = %d, want 99 after reload", got.Bundles)
	}
}
