// internal/output/excel.go
package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DefaultExcelMaxCellLength is Excel's limit on characters in a cell
const DefaultExcelMaxCellLength = 32767

// ExcelWriter writes a batch to a single worksheet
type ExcelWriter struct {
	file      *excelize.File
	filename  string
	sheetName string
	columns   []string
	row       int
	saved     bool
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter(filename, sheetName string) (*ExcelWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("Excel file path is required")
	}
	if sheetName == "" {
		sheetName = "Businesses"
	}

	file := excelize.NewFile()
	if defaultSheet := file.GetSheetName(0); defaultSheet != sheetName {
		if err := file.SetSheetName(defaultSheet, sheetName); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	return &ExcelWriter{
		file:      file,
		filename:  filename,
		sheetName: sheetName,
		columns:   BusinessColumns,
		row:       1,
	}, nil
}

// Write appends the header on first use and one row per record
func (w *ExcelWriter) Write(data []map[string]interface{}) error {
	if w.row == 1 {
		if err := w.writeHeaders(); err != nil {
			return err
		}
	}

	for _, record := range data {
		for col, key := range w.columns {
			ref, err := excelize.CoordinatesToCellName(col+1, w.row)
			if err != nil {
				return err
			}
			value := cell(record, key)
			if len(value) > DefaultExcelMaxCellLength {
				value = value[:DefaultExcelMaxCellLength]
			}
			if err := w.file.SetCellValue(w.sheetName, ref, value); err != nil {
				return err
			}
		}
		w.row++
	}
	return nil
}

// writeHeaders writes the styled header row
func (w *ExcelWriter) writeHeaders() error {
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range w.columns {
		ref, err := excelize.CoordinatesToCellName(col+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheetName, ref, header); err != nil {
			return err
		}
		if err := w.file.SetCellStyle(w.sheetName, ref, ref, style); err != nil {
			return err
		}
	}
	w.row++
	return nil
}

// applyFinalFormatting sets widths, a filter over the data and a frozen header
func (w *ExcelWriter) applyFinalFormatting() error {
	last, err := excelize.ColumnNumberToName(len(w.columns))
	if err != nil {
		return err
	}
	if err := w.file.SetColWidth(w.sheetName, "A", last, 24); err != nil {
		return err
	}
	if w.row > 2 {
		if err := w.file.AutoFilter(w.sheetName, fmt.Sprintf("A1:%s%d", last, w.row-1), nil); err != nil {
			return err
		}
	}
	return w.file.SetPanes(w.sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// Close saves the workbook
func (w *ExcelWriter) Close() error {
	if w.saved {
		return nil
	}
	w.saved = true
	defer w.file.Close()

	if w.row == 1 {
		if err := w.writeHeaders(); err != nil {
			return err
		}
	}
	if err := w.applyFinalFormatting(); err != nil {
		return err
	}
	return w.file.SaveAs(w.filename)
}
