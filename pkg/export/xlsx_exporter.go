package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders Dataset records into an Excel workbook.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render produces a single-sheet workbook with a header row and the dataset body.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	for col, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for rowIdx, row := range data.Rows {
		for col, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("body cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, row[header]); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
