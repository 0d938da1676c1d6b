package dataset

import (
	"strconv"
)

// CellKind identifies the kind of value a cell holds
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
)

func (k CellKind) String() string {
	switch k {
	case CellString:
		return "string"
	case CellNumber:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a single tabular value. Number cells keep the source text so
// values round-trip unchanged.
type Cell struct {
	Kind CellKind
	Text string
}

// Empty returns an empty cell
func Empty() Cell { return Cell{Kind: CellEmpty} }

// Text returns a string cell; the empty string yields an empty cell
func Text(s string) Cell {
	if s == "" {
		return Empty()
	}
	return Cell{Kind: CellString, Text: s}
}

// Number returns a numeric cell for v
func Number(v float64) Cell {
	return Cell{Kind: CellNumber, Text: strconv.FormatFloat(v, 'f', -1, 64)}
}

// NumberText returns a numeric cell from its textual form. Text that does
// not parse as a float yields a string cell.
func NumberText(s string) Cell {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return Text(s)
	}
	return Cell{Kind: CellNumber, Text: s}
}

// String returns the substitution text of the cell
func (c Cell) String() string {
	return c.Text
}

// Float returns the numeric value of a number cell
func (c Cell) Float() (float64, bool) {
	if c.Kind != CellNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(c.Text, 64)
	return v, err == nil
}

// IsEmpty reports whether the cell holds no value
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// Format identifies a tabular file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)
