package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Workbook is an open xlsx file. It implements domain.Workbook and must be
// closed after use.
type Workbook struct {
	file     *excelize.File
	date1904 bool
}

// Open opens the workbook at path. Legacy BIFF (.xls) files are rejected by
// the underlying reader with an open error.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newWorkbook(f)
}

// OpenReader reads a workbook from r, e.g. an HTTP upload.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newWorkbook(f)
}

func newWorkbook(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{file: f}
	props, err := f.GetWorkbookProps()
	if err != nil {
		f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("read workbook properties: %w", err)
	}
	if props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb, nil
}

// SheetNames lists the workbook's sheets in tab order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Sheet returns the named sheet, or domain.ErrSheetAbsent when there is none.
func (w *Workbook) Sheet(name string) (domain.Grid, error) {
	idx, err := w.file.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("locate sheet %q: %w", name, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrSheetAbsent, name)
	}
	return &sheet{wb: w, name: name}, nil
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// sheet reads cells lazily; the forms are small and only a few dozen
// positions are ever addressed.
type sheet struct {
	wb   *Workbook
	name string
}

func (s *sheet) Cell(row, col int) domain.Cell {
	if row < 0 || col < 0 {
		return domain.Cell{}
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return domain.Cell{}
	}
	c, err := s.read(ref)
	if err != nil {
		return domain.Cell{}
	}
	return c
}

func (s *sheet) read(ref string) (domain.Cell, error) {
	f := s.wb.file
	raw, err := f.GetCellValue(s.name, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Cell{}, err
	}
	typ, err := f.GetCellType(s.name, ref)
	if err != nil {
		return domain.Cell{}, err
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		if raw == "" {
			return domain.Cell{}, nil
		}
		return domain.TextCell(raw), nil
	case excelize.CellTypeBool:
		return domain.BoolCell(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeDate:
		// ISO-8601 value stored inline.
		if t, ok := parseISODate(raw); ok {
			return domain.DateCell(t), nil
		}
		return domain.TextCell(raw), nil
	}

	// Untyped and explicitly numeric cells.
	if raw == "" {
		return domain.Cell{}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.TextCell(raw), nil
	}
	if s.isDateStyled(ref) {
		if t, err := excelize.ExcelDateToTime(v, s.wb.date1904); err == nil {
			return domain.DateCell(t), nil
		}
	}
	return domain.NumberCell(v), nil
}

func (s *sheet) isDateStyled(ref string) bool {
	f := s.wb.file
	idx, err := f.GetCellStyle(s.name, ref)
	if err != nil || idx == 0 {
		return false
	}
	style, err := f.GetStyle(idx)
	if err != nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return isBuiltinDateFormat(style.NumFmt)
}

// isBuiltinDateFormat reports whether a built-in number format id renders
// dates or times (ECMA-376 18.8.30).
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat applies the usual heuristic to a custom format code: any
// unquoted, unbracketed y, d, h or s token marks a date/time format.
func isDateFormat(code string) bool {
	var quoted, bracketed, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracketed = true
		case r == ']':
			bracketed = false
		case bracketed:
		case r == 'y', r == 'd', r == 'h', r == 's':
			return true
		}
	}
	return false
}

func parseISODate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
