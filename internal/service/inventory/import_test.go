package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cableshop/internal/domain/models"
)

func TestImportProductsUpsertsBySKU(t *testing.T) {
	svc, _ := newTestService(t)
	existing := mustProduct(t, svc, models.Product{Name: "old name", SKU: "CB-1", Quantity: 1})

	res, err := svc.ImportProducts(context.Background(), []models.ProductImportRow{
		{Name: "new name", SKU: "cb-1", Quantity: 20, ReorderLevel: 5, UnitPrice: decimal.NewFromInt(90)},
		{Name: "fresh", SKU: "CB-2", Quantity: 4},
		{Name: "", SKU: "CB-3"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 || res.Updated != 1 || len(res.Skipped) != 1 {
		t.Fatalf("result = %+v", res)
	}

	got, _ := svc.Product(existing.ID)
	if got.Name != "new name" || got.Quantity != 20 || got.SKU != "CB-1" {
		t.Fatalf("updated product = %+v", got)
	}
	if len(svc.Products(true)) != 2 {
		t.Fatalf("catalog size = %d", len(svc.Products(true)))
	}
}
