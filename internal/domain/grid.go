package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CellKind is the scalar type of a sheet cell.
type CellKind int

const (
	CellBlank CellKind = iota
	CellText
	CellNumber
	CellBool
	CellDate
)

// Cell is one typed scalar read from a sheet.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Bool   bool
	Time   time.Time
}

// TextCell builds a text cell.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }

// BoolCell builds a boolean cell.
func BoolCell(b bool) Cell { return Cell{Kind: CellBool, Bool: b} }

// DateCell builds a date cell.
func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Time: t} }

// IsBlank reports whether the cell is empty or whitespace-only text.
func (c Cell) IsBlank() bool {
	return c.Kind == CellBlank || (c.Kind == CellText && strings.TrimSpace(c.Text) == "")
}

// String renders the cell the way pass-through text fields carry it.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	case CellDate:
		if c.Time.Hour() == 0 && c.Time.Minute() == 0 && c.Time.Second() == 0 && c.Time.Nanosecond() == 0 {
			return c.Time.Format(time.DateOnly)
		}
		return c.Time.Format(time.DateTime)
	default:
		return ""
	}
}

// Grid is a positionally addressed sheet. Row and column are zero-based;
// positions outside the used range read as blank.
type Grid interface {
	Cell(row, col int) Cell
}

// Workbook is one spreadsheet file. Sheet returns ErrSheetAbsent when the
// workbook has no sheet of that name.
type Workbook interface {
	Sheet(name string) (Grid, error)
}

// CellRef renders a zero-based position as an A1 reference.
func CellRef(row, col int) string {
	name := ""
	for c := col + 1; c > 0; c = (c - 1) / 26 {
		name = string(rune('A'+(c-1)%26)) + name
	}
	return fmt.Sprintf("%s%d", name, row+1)
}

// MemoryGrid is a sparse in-memory Grid.
type MemoryGrid map[Position]Cell

func (g MemoryGrid) Cell(row, col int) Cell {
	return g[Position{Row: row, Col: col}]
}

// Set stores c at (row, col) and returns g for chaining.
func (g MemoryGrid) Set(row, col int, c Cell) MemoryGrid {
	g[Position{Row: row, Col: col}] = c
	return g
}

// MemoryWorkbook is an in-memory Workbook keyed by sheet name.
type MemoryWorkbook map[string]Grid

func (w MemoryWorkbook) Sheet(name string) (Grid, error) {
	g, ok := w[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetAbsent, name)
	}
	return g, nil
}
