// Package sheet provides streaming readers for Excel worksheets with a header row
package sheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a required header is absent
var ErrMissingColumn = errors.New("missing column")

// Reader streams the rows of one worksheet. Row 1 is the header.
type Reader struct {
	file    *excelize.File
	rows    *excelize.Rows
	sheet   string
	header  []string
	index   map[string]int
	lineNum int
	current Row
	err     error
}

// Row is one data row keyed by header name
type Row struct {
	Line   int
	values []string
	index  map[string]int
}

// Open opens a workbook and positions the reader after the header of the
// named sheet. An empty sheet name selects the first sheet.
func Open(path, sheet string) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	r, err := newReader(f, sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(f *excelize.File, sheet string) (*Reader, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return nil, fmt.Errorf("sheet %q not found (have %s)", sheet, strings.Join(sheets, ", "))
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	r := &Reader{
		file:  f,
		rows:  rows,
		sheet: sheet,
		index: make(map[string]int),
	}

	if !rows.Next() {
		rows.Close()
		if err := rows.Error(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	r.lineNum = 1

	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	r.header = header
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := r.index[name]; !dup {
			r.index[name] = i
		}
	}

	return r, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Sheet returns the name of the sheet being read
func (r *Reader) Sheet() string {
	return r.sheet
}

// Header returns the header row
func (r *Reader) Header() []string {
	return r.header
}

// Has reports whether the header contains a column
func (r *Reader) Has(column string) bool {
	_, ok := r.index[column]
	return ok
}

// Require fails with ErrMissingColumn when any column is absent
func (r *Reader) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !r.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w in sheet %s: %s", ErrMissingColumn, r.sheet, strings.Join(missing, ", "))
	}
	return nil
}

// Next advances to the next non-empty row. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	for r.rows.Next() {
		r.lineNum++
		values, err := r.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.lineNum, err)
			return false
		}
		if blank(values) {
			continue
		}
		r.current = Row{Line: r.lineNum, values: values, index: r.index}
		return true
	}
	r.err = r.rows.Error()
	return false
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Row returns the current row
func (r *Reader) Row() Row {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// Close releases the workbook
func (r *Reader) Close() error {
	if err := r.rows.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// String returns the trimmed cell of a column, "" when absent
func (row Row) String(column string) string {
	i, ok := row.index[column]
	if !ok || i >= len(row.values) {
		return ""
	}
	return strings.TrimSpace(row.values[i])
}

// Values returns the raw cells padded to n columns
func (row Row) Values(n int) []string {
	out := make([]string, n)
	copy(out, row.values)
	return out
}

// Float parses a numeric cell
func (row Row) Float(column string) (float64, error) {
	s := row.String(column)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s value '%s'", row.Line, column, s)
	}
	return v, nil
}

// Int parses an integer cell, accepting integral floats such as "105.0"
func (row Row) Int(column string) (int, error) {
	s := row.String(column)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, fmt.Errorf("line %d: invalid %s value '%s'", row.Line, column, s)
	}
	return int(v), nil
}

// OptionalFloat parses a numeric cell, 0 when absent or empty
func (row Row) OptionalFloat(column string) (float64, error) {
	if row.String(column) == "" {
		return 0, nil
	}
	return row.Float(column)
}
