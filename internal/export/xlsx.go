package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ledger/internal/core"
)

// SheetName is the worksheet that holds exported entries.
const SheetName = "Entries"

// numeric columns are written as numbers so spreadsheet formulas work on them
var numericColumns = map[int]bool{4: true, 6: true, 8: true}

// WriteXLSX writes the same table as WriteCSV as a single-sheet workbook.
func WriteXLSX(w io.Writer, entries []core.Entry) error {
	rows, err := Rows(entries)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for i, row := range rows {
		cells := make([]any, len(row))
		for col, v := range row {
			cells[col] = v
			if i > 0 && numericColumns[col] && v != "" {
				d, err := decimal.NewFromString(v)
				if err != nil {
					return fmt.Errorf("row %d column %s: %w", i+1, Header[col], err)
				}
				cells[col] = d.InexactFloat64()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	widths := map[string]float64{"A": 12, "B": 10, "C": 32, "D": 15, "E": 12, "F": 16, "G": 13, "H": 13, "I": 12}
	for col, width := range widths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}
