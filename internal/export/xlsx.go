package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RenderXLSX writes the table into a single-sheet workbook.
func RenderXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(0)
	rowIdx := 1
	if t.Title != "" {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetCellValue(sheet, cell, t.Title); err != nil {
			return nil, fmt.Errorf("export: xlsx title: %w", err)
		}
		rowIdx += 2
	}

	writeRow := func(values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		rowIdx++
		return nil
	}

	if len(t.Headers) > 0 {
		if err := writeRow(t.Headers); err != nil {
			return nil, fmt.Errorf("export: xlsx headers: %w", err)
		}
	}
	for _, row := range t.Rows {
		if err := writeRow(row); err != nil {
			return nil, fmt.Errorf("export: xlsx row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: xlsx encode: %w", err)
	}
	return buf.Bytes(), nil
}
