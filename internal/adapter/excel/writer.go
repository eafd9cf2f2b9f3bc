package excel

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// TableSheet is the sheet name of the record table.
const TableSheet = "Sheet1"

// TableSink writes extracted records as a single table, one row per record
// under the domain column header. Each Write replaces the file.
type TableSink struct {
	path string
}

// NewTableSink creates a sink writing to the xlsx file at path.
func NewTableSink(path string) *TableSink {
	return &TableSink{path: path}
}

// Name identifies the sink in logs and metrics.
func (s *TableSink) Name() string { return "xlsx" }

// Path returns the output file location.
func (s *TableSink) Path() string { return s.path }

// Write saves the header and one row per record, in the given order.
func (s *TableSink) Write(ctx context.Context, records []domain.ObservationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = records[i].Values()
	}
	if err := WriteTable(s.path, domain.Columns(), rows); err != nil {
		return fmt.Errorf("write record table %s: %w", s.path, err)
	}
	return nil
}

// WriteTable writes header and rows to a new workbook at path. Nil values
// produce empty cells.
func WriteTable(path string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory file

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(TableSheet, "A1", &headerRow); err != nil {
		return err
	}
	for i := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(TableSheet, ref, &rows[i]); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// SheetContent is one sheet of sparse cells, such as a filled-in form.
type SheetContent struct {
	Name  string
	Cells domain.MemoryGrid
}

// SaveWorkbook writes sheets, in order, to a new workbook at path.
func SaveWorkbook(path string, sheets ...SheetContent) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // in-memory file
	return f.SaveAs(path)
}

// WriteWorkbook streams sheets, in order, as an xlsx document to w.
func WriteWorkbook(w io.Writer, sheets ...SheetContent) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // in-memory file
	return f.Write(w)
}

func buildWorkbook(sheets []SheetContent) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(TableSheet, sh.Name); err != nil {
				f.Close() //nolint:errcheck // already failing
				return nil, fmt.Errorf("name sheet %q: %w", sh.Name, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("add sheet %q: %w", sh.Name, err)
		}
		if err := writeCells(f, sh); err != nil {
			f.Close() //nolint:errcheck // already failing
			return nil, err
		}
	}
	return f, nil
}

func writeCells(f *excelize.File, sh SheetContent) error {
	positions := make([]domain.Position, 0, len(sh.Cells))
	for p := range sh.Cells {
		positions = append(positions, p)
	}
	slices.SortFunc(positions, func(a, b domain.Position) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col))
	})

	for _, p := range positions {
		ref, err := excelize.CoordinatesToCellName(p.Col+1, p.Row+1)
		if err != nil {
			return err
		}
		c := sh.Cells[p]
		switch c.Kind {
		case domain.CellText:
			err = f.SetCellStr(sh.Name, ref, c.Text)
		case domain.CellNumber:
			err = f.SetCellFloat(sh.Name, ref, c.Number, -1, 64)
		case domain.CellBool:
			err = f.SetCellBool(sh.Name, ref, c.Bool)
		case domain.CellDate:
			err = f.SetCellValue(sh.Name, ref, c.Time)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("write %s!%s: %w", sh.Name, ref, err)
		}
	}
	return nil
}

// ReadTable reads back a table written by WriteTable. Rows are padded to the
// header width; numeric cells are returned unformatted.
func ReadTable(path string) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	all, err := f.GetRows(TableSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("read table: %s is empty", path)
	}
	header = all[0]
	for _, row := range all[1:] {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
