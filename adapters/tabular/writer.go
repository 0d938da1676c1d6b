package tabular

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"sheetprompt/domain/dataset"
	"sheetprompt/internal"
	"sheetprompt/internal/errors"

	"github.com/xuri/excelize/v2"
)

const outputSheet = "Sheet1"

// DataWriter serializes datasets to CSV or spreadsheet files
type DataWriter struct {
	logger *internal.Logger
}

// NewDataWriter creates a data writer; a nil logger uses the default logger
func NewDataWriter(logger *internal.Logger) *DataWriter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataWriter{logger: logger}
}

// Write serializes ds to path in the format given by its extension. Output
// goes to a temporary file in the same directory that is renamed over path,
// so a failed write never leaves a partial file behind.
func (w *DataWriter) Write(ctx context.Context, ds *dataset.Dataset, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WriteError(path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	switch format {
	case dataset.FormatCSV:
		err = writeCSV(tmp, ds)
	case dataset.FormatXLS, dataset.FormatXLSX:
		err = w.writeWorkbook(tmp, ds)
	}
	if err != nil {
		return errors.WriteError(path, err)
	}

	if err := tmp.Chmod(0o644); err != nil {
		return errors.WriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WriteError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.WriteError(path, err)
	}
	committed = true

	w.logger.Debug("[DataWriter] wrote %d rows x %d columns to %s", ds.Len(), ds.Header().Len(), path)
	return nil
}

func writeCSV(out io.Writer, ds *dataset.Dataset) error {
	buf := bufio.NewWriter(out)
	cw := csv.NewWriter(buf)

	if err := cw.Write(ds.Header().Names()); err != nil {
		return err
	}
	record := make([]string, ds.Header().Len())
	for _, row := range ds.Rows() {
		for i, c := range row.Cells() {
			record[i] = c.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// writeWorkbook writes a single-sheet OOXML workbook. Number cells are
// stored as numbers; everything else is stored as text. Text longer than a
// workbook cell can hold is cut to excelize.TotalCellChars with a warning.
func (w *DataWriter) writeWorkbook(out io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	names := ds.Header().Names()
	header := make([]interface{}, 0, len(names))
	for _, name := range names {
		header = append(header, name)
	}
	if err := f.SetSheetRow(outputSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range ds.Rows() {
		values := make([]interface{}, 0, len(names))
		for j, c := range row.Cells() {
			v := cellValue(c)
			if text, ok := v.(string); ok {
				if n := utf8.RuneCountInString(text); n > excelize.TotalCellChars {
					w.logger.Warn("[DataWriter] row %d column %q: %d characters exceed the %d-character cell limit, value truncated",
						i+1, names[j], n, excelize.TotalCellChars)
					v = string([]rune(text)[:excelize.TotalCellChars])
				}
			}
			values = append(values, v)
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(outputSheet, cellRef, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("serialize workbook: %w", err)
	}
	return nil
}

func cellValue(c dataset.Cell) interface{} {
	switch c.Kind {
	case dataset.CellEmpty:
		return nil
	case dataset.CellNumber:
		if v, ok := c.Float(); ok {
			return v
		}
	}
	return c.String()
}
