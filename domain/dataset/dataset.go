package dataset

import (
	"fmt"
	"strings"
)

// Header is an ordered list of unique column names
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header from names, which must be unique
func NewHeader(names []string) (*Header, error) {
	h := &Header{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		if err := h.add(name); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// NormalizeHeader makes raw source header names unique: a blank name at
// position i becomes "Unnamed: i" and repeats of x become x.1, x.2, ...
func NormalizeHeader(raw []string) *Header {
	h := &Header{
		names: make([]string, 0, len(raw)),
		index: make(map[string]int, len(raw)),
	}
	seen := make(map[string]int, len(raw))
	for i, name := range raw {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for {
			if _, taken := h.index[candidate]; !taken {
				break
			}
			seen[name]++
			candidate = fmt.Sprintf("%s.%d", name, seen[name])
		}
		_ = h.add(candidate)
	}
	return h
}

func (h *Header) add(name string) error {
	if _, exists := h.index[name]; exists {
		return fmt.Errorf("duplicate column name %q", name)
	}
	h.index[name] = len(h.names)
	h.names = append(h.names, name)
	return nil
}

// Index returns the position of name, or false when the column is absent
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Has reports whether name is a column
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Names returns a copy of the column names in order
func (h *Header) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of columns
func (h *Header) Len() int {
	return len(h.names)
}

// Row is one record bound to its dataset header
type Row struct {
	header *Header
	cells  []Cell
}

// Lookup returns the cell for a column. The boolean is false when the column
// does not exist; a present but blank cell returns an empty cell and true.
func (r Row) Lookup(name string) (Cell, bool) {
	i, ok := r.header.Index(name)
	if !ok {
		return Cell{}, false
	}
	return r.cells[i], true
}

// Cells returns a copy of the row's cells in header order
func (r Row) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// Header returns the header the row is bound to
func (r Row) Header() *Header {
	return r.header
}

// Dataset is the in-memory representation of a tabular file
type Dataset struct {
	Source string
	Format Format

	header *Header
	rows   [][]Cell
}

// New creates an empty dataset with the given header
func New(header *Header) *Dataset {
	return &Dataset{header: header}
}

// FromRecords builds a dataset from a header and rows of cells. Rows shorter
// than the header are padded with empty cells; longer rows are rejected.
func FromRecords(header *Header, records [][]Cell) (*Dataset, error) {
	ds := New(header)
	for i, rec := range records {
		if err := ds.Append(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return ds, nil
}

// Append adds a row, padding it to the header width
func (d *Dataset) Append(cells []Cell) error {
	if len(cells) > d.header.Len() {
		return fmt.Errorf("row has %d fields, header has %d", len(cells), d.header.Len())
	}
	row := make([]Cell, d.header.Len())
	copy(row, cells)
	d.rows = append(d.rows, row)
	return nil
}

// Header returns the dataset header
func (d *Dataset) Header() *Header {
	return d.header
}

// Len returns the number of data rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns the i-th data row
func (d *Dataset) Row(i int) Row {
	return Row{header: d.header, cells: d.rows[i]}
}

// Rows returns all data rows in order
func (d *Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	for i := range d.rows {
		out[i] = d.Row(i)
	}
	return out
}

// SetColumn fills column name with values, one per row. An existing column
// of that name is overwritten in place; otherwise the column is appended.
// It reports whether an existing column was overwritten.
func (d *Dataset) SetColumn(name string, values []Cell) (bool, error) {
	if len(values) != len(d.rows) {
		return false, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(d.rows))
	}

	if i, ok := d.header.Index(name); ok {
		for r := range d.rows {
			d.rows[r][i] = values[r]
		}
		return true, nil
	}

	header, err := NewHeader(append(d.header.Names(), name))
	if err != nil {
		return false, err
	}
	d.header = header
	for r := range d.rows {
		d.rows[r] = append(d.rows[r], values[r])
	}
	return false, nil
}
