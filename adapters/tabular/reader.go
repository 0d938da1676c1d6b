package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"sheetprompt/domain/dataset"
	"sheetprompt/internal"
	"sheetprompt/internal/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// DataReader loads CSV and spreadsheet files into datasets
type DataReader struct {
	logger *internal.Logger
}

// NewDataReader creates a data reader; a nil logger uses the default logger
func NewDataReader(logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{logger: logger}
}

// Load reads path into a dataset. The first non-blank row is the header;
// only the first sheet of a workbook is read.
func (r *DataReader) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.FileNotFound(path)
	}
	if err != nil {
		return nil, errors.ParseError(path, err)
	}
	if info.IsDir() {
		return nil, errors.ParseError(path, fmt.Errorf("is a directory"))
	}

	r.logger.Debug("[DataReader] Starting to read %s file: %s", format, path)
	start := time.Now()

	var records [][]dataset.Cell
	switch format {
	case dataset.FormatCSV:
		records, err = r.readCSV(path)
	case dataset.FormatXLSX:
		records, err = r.readXLSX(path)
	case dataset.FormatXLS:
		records, err = r.readXLS(path)
	}
	if err != nil {
		return nil, errors.ParseError(path, err)
	}

	ds, err := processRows(records)
	if err != nil {
		return nil, errors.ParseError(path, err)
	}
	ds.Source = path
	ds.Format = format

	r.logger.Debug("[DataReader] %s file processed in %.2fms (%d columns, %d rows)",
		strings.ToUpper(string(format)), float64(time.Since(start).Nanoseconds())/1e6, ds.Header().Len(), ds.Len())
	return ds, nil
}

// readCSV reads comma-delimited text. Every value is kept as a string cell
// so it round-trips unchanged.
func (r *DataReader) readCSV(path string) ([][]dataset.Cell, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}

	records := make([][]dataset.Cell, len(rows))
	for i, row := range rows {
		cells := make([]dataset.Cell, len(row))
		for j, v := range row {
			cells[j] = dataset.Text(v)
		}
		records[i] = cells
	}
	return records, nil
}

// readXLSX reads the first sheet of an OOXML workbook. Numeric cells whose
// displayed text is a plain number become number cells.
func (r *DataReader) readXLSX(path string) ([][]dataset.Cell, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	records := make([][]dataset.Cell, len(rows))
	for i, row := range rows {
		cells := make([]dataset.Cell, len(row))
		for j, v := range row {
			if v == "" {
				cells[j] = dataset.Empty()
				continue
			}
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheet, cellRef)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", cellRef, err)
			}
			switch cellType {
			case excelize.CellTypeNumber, excelize.CellTypeUnset:
				cells[j] = dataset.NumberText(v)
			default:
				cells[j] = dataset.Text(v)
			}
		}
		records[i] = cells
	}
	return records, nil
}

// readXLS reads a .xls file. Legacy BIFF workbooks go through the xls
// decoder; OOXML content saved under a .xls name goes through excelize.
func (r *DataReader) readXLS(path string) ([][]dataset.Cell, error) {
	kind, err := sniffContainer(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case containerZIP:
		r.logger.Debug("[DataReader] %s holds an OOXML workbook", path)
		return r.readXLSX(path)
	case containerOLE2:
		return readBIFF(path)
	default:
		return nil, fmt.Errorf("not a spreadsheet file")
	}
}

// readBIFF decodes the first sheet of a legacy workbook. Rows without any
// value come back zero-length, as excelize returns them. The decoder panics
// on some malformed input, so panics are turned into errors.
func readBIFF(path string) (records [][]dataset.Cell, err error) {
	defer func() {
		if p := recover(); p != nil {
			records, err = nil, fmt.Errorf("corrupt xls workbook: %v", p)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls file: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("no workbook stream in xls file")
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no readable sheet")
	}

	width := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		if row.LastCol() > width {
			width = row.LastCol()
		}
		cells := make([]dataset.Cell, width)
		for c := range cells {
			cells[c] = dataset.Text(row.Col(c))
		}
		if isBlank(cells) {
			cells = nil
		}
		records = append(records, cells)
	}
	return records, nil
}

// sheetRow returns row i, or nil when the sheet has no record for it
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// processRows turns raw records into a dataset: leading blank rows are
// skipped and the next row is the header. After the header only zero-length
// records are dropped; a record of empty fields is a row of empty cells.
func processRows(records [][]dataset.Cell) (*dataset.Dataset, error) {
	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, fmt.Errorf("no header row")
	}

	raw := make([]string, len(records[start]))
	for i, c := range records[start] {
		raw[i] = c.String()
	}
	header := dataset.NormalizeHeader(raw)

	ds := dataset.New(header)
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) == 0 {
			continue
		}
		if len(rec) > header.Len() {
			rec = trimTrailingEmpty(rec)
		}
		if err := ds.Append(rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return ds, nil
}

func isBlank(cells []dataset.Cell) bool {
	for _, c := range cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

func trimTrailingEmpty(cells []dataset.Cell) []dataset.Cell {
	n := len(cells)
	for n > 0 && cells[n-1].IsEmpty() {
		n--
	}
	return cells[:n]
}
