package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/cableshop/internal/domain/models"
)

const exportDateLayout = "2006-01-02"

// WriteSales writes sales as an xlsx workbook with a totals row.
func WriteSales(w io.Writer, sales []models.Sale) error {
	header := []interface{}{"Date", "Product", "Customer", "Quantity", "Unit Price", "Discount", "Total", "Final"}
	rows := make([][]interface{}, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []interface{}{
			s.SaleDate.Format(exportDateLayout),
			s.ProductName,
			s.CustomerName,
			s.Quantity,
			s.UnitPrice.InexactFloat64(),
			s.Discount.InexactFloat64(),
			s.TotalAmount.InexactFloat64(),
			s.FinalAmount.InexactFloat64(),
		})
	}
	return writeSheet(w, "Sales", header, rows, "H")
}

// WriteExpenses writes expenses as an xlsx workbook. categoryNames maps category ids to names.
func WriteExpenses(w io.Writer, expenses []models.Expense, categoryNames map[int64]string) error {
	header := []interface{}{"Date", "Category", "Description", "Amount"}
	rows := make([][]interface{}, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []interface{}{
			e.Date.Format(exportDateLayout),
			categoryNames[e.CategoryID],
			e.Description,
			e.Amount.InexactFloat64(),
		})
	}
	return writeSheet(w, "Expenses", header, rows, "D")
}

// writeSheet writes a single-sheet workbook and adds a SUM row under totalCol.
func writeSheet(w io.Writer, sheet string, header []interface{}, rows [][]interface{}, totalCol string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(rows) > 0 {
		totalRow := len(rows) + 2
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
			return fmt.Errorf("write total label: %w", err)
		}
		formula := fmt.Sprintf("SUM(%s2:%s%d)", totalCol, totalCol, totalRow-1)
		if err := f.SetCellFormula(sheet, fmt.Sprintf("%s%d", totalCol, totalRow), formula); err != nil {
			return fmt.Errorf("write total formula: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
