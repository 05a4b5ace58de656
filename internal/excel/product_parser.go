// Package excel reads product catalogs from and writes reports to xlsx workbooks.
package excel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/cableshop/internal/domain/models"
)

var headerAliases = map[string]string{
	"name":          "name",
	"product":       "name",
	"product name":  "name",
	"item":          "name",
	"نام":           "name",
	"sku":           "sku",
	"code":          "sku",
	"product code":  "sku",
	"category":      "category",
	"type":          "category",
	"quantity":      "quantity",
	"qty":           "quantity",
	"stock":         "quantity",
	"مقدار":         "quantity",
	"reorder level": "reorder_level",
	"reorder":       "reorder_level",
	"min stock":     "reorder_level",
	"unit price":    "unit_price",
	"price":         "unit_price",
	"sell price":    "unit_price",
	"قیمت":          "unit_price",
	"cost price":    "cost_price",
	"cost":          "cost_price",
	"buy price":     "cost_price",
}

// ParseProductRows reads the first sheet of an xlsx workbook. The header row
// must contain a name and a quantity column; other columns are optional.
// Rows without a name are skipped.
func ParseProductRows(reader io.Reader) ([]models.ProductImportRow, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	cols := mapColumns(rows[0])
	for _, required := range []string{"name", "quantity"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	result := make([]models.ProductImportRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(cell(cells, cols, "name"))
		if name == "" {
			continue
		}

		qty, err := parseInt(cell(cells, cols, "quantity"))
		if err != nil {
			return nil, fmt.Errorf("row %d invalid quantity: %w", index+1, err)
		}
		row := models.ProductImportRow{
			Name:     name,
			SKU:      strings.TrimSpace(cell(cells, cols, "sku")),
			Category: strings.TrimSpace(cell(cells, cols, "category")),
			Quantity: qty,
		}

		if raw := strings.TrimSpace(cell(cells, cols, "reorder_level")); raw != "" {
			if row.ReorderLevel, err = parseInt(raw); err != nil {
				return nil, fmt.Errorf("row %d invalid reorder level: %w", index+1, err)
			}
		}
		if raw := strings.TrimSpace(cell(cells, cols, "unit_price")); raw != "" {
			if row.UnitPrice, err = parseMoney(raw); err != nil {
				return nil, fmt.Errorf("row %d invalid unit price: %w", index+1, err)
			}
		}
		if raw := strings.TrimSpace(cell(cells, cols, "cost_price")); raw != "" {
			if row.CostPrice, err = parseMoney(raw); err != nil {
				return nil, fmt.Errorf("row %d invalid cost price: %w", index+1, err)
			}
		}

		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("excel file has no valid data rows")
	}
	return result, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		canonical, ok := headerAliases[normalizeHeader(col)]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	return strings.Join(strings.Fields(value), " ")
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseInt(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	asFloat, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be a whole number")
	}
	if asFloat < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return int(asFloat), nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return value, nil
}
