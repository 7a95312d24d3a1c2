package reports

import (
	"io"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/fabricflow/fabricflow/internal/inventory"
)

const inventorySheet = "Inventory"

var inventoryHeader = []any{"SKU", "Barcode", "Name", "Size", "Available", "Sold", "Returned", "Min stock", "Low"}

func writeInventoryWorkbook(w io.Writer, storeName string, levels []inventory.StockLevel) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return err
	}
	if err := f.SetCellValue(inventorySheet, "A1", storeName); err != nil {
		return err
	}
	if err := f.SetSheetRow(inventorySheet, "A3", &inventoryHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(inventorySheet, "A1", "I3", bold); err != nil {
		return err
	}

	for i, l := range levels {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return err
		}
		low := ""
		if l.IsLow() {
			low = "LOW"
		}
		row := []any{l.SKU, l.Barcode, l.Name, string(l.Size), l.QuantityAvailable, l.QuantitySold, l.QuantityReturned, l.MinStock, low}
		if err := f.SetSheetRow(inventorySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(inventorySheet, "A", "C", 22); err != nil {
		return err
	}
	return f.Write(w)
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
