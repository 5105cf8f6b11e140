// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVWriter writes data in CSV format
type CSVWriter struct {
	filename string
	file     *os.File
	writer   *csv.Writer
	columns  []string
}

// NewCSVWriter creates a CSV writer using the business column order
func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &CSVWriter{
		filename: filename,
		file:     file,
		writer:   csv.NewWriter(file),
		columns:  BusinessColumns,
	}, nil
}

// Write writes a header and one row per record. Absent fields are empty cells.
func (w *CSVWriter) Write(data []map[string]interface{}) error {
	if err := w.writer.Write(w.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range data {
		record := make([]string, len(w.columns))
		for i, column := range w.columns {
			record[i] = cell(row, column)
		}
		if err := w.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close closes the CSV writer
func (w *CSVWriter) Close() error {
	if w.writer != nil {
		w.writer.Flush()
		w.writer = nil
	}
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
