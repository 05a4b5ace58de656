package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMaterial is a dated lot of purchased raw material (copper, PVC, ...).
// OriginalQuantity is the historical intake; Quantity is what remains.
type RawMaterial struct {
	Base
	BatchID          string          `json:"batchId"`
	MaterialType     string          `json:"materialType"`
	Supplier         string          `json:"supplier,omitempty"`
	OriginalQuantity float64         `json:"originalQuantity"`
	Quantity         float64         `json:"quantity"`
	Unit             string          `json:"unit"`
	CostPerUnit      decimal.Decimal `json:"costPerUnit"`
	Date             time.Time       `json:"date"`
}

// RawMaterialBatchUsed records how much of a raw lot a processed batch consumed.
type RawMaterialBatchUsed struct {
	RawMaterialID int64     `json:"rawMaterialId"`
	BatchID       string    `json:"batchId"`
	QuantityUsed  float64   `json:"quantityUsed"`
	UsedAt        time.Time `json:"usedAt"`
}

// ProcessedRawMaterial is a batch of bundled output produced from raw lots.
type ProcessedRawMaterial struct {
	Base
	BatchID                string                 `json:"batchId"`
	Name                   string                 `json:"name"`
	NumberOfBundles        int                    `json:"numberOfBundles"`
	WeightPerBundle        float64                `json:"weightPerBundle"`
	OutputQuantity         float64                `json:"outputQuantity"`
	UsedQuantity           float64                `json:"usedQuantity"`
	RawMaterialBatchesUsed []RawMaterialBatchUsed `json:"rawMaterialBatchesUsed"`
	Date                   time.Time              `json:"date"`
}

// Clone copies the provenance slice so callers never share it with the store.
func (p ProcessedRawMaterial) Clone() ProcessedRawMaterial {
	if p.RawMaterialBatchesUsed != nil {
		used := make([]RawMaterialBatchUsed, len(p.RawMaterialBatchesUsed))
		copy(used, p.RawMaterialBatchesUsed)
		p.RawMaterialBatchesUsed = used
	}
	return p
}

// Uses reports whether the batch consumed the given raw material.
func (p ProcessedRawMaterial) Uses(rawMaterialID int64) bool {
	for _, used := range p.RawMaterialBatchesUsed {
		if used.RawMaterialID == rawMaterialID {
			return true
		}
	}
	return false
}
