// Package xlsx writes result tables to Excel workbooks
package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/crtlab/n145/pkg/core"
)

const (
	defaultSheet = "Sheet1"
	maxSheetName = 31
)

// Writer writes one worksheet per table
type Writer struct {
	// Index prepends a 0-based row number column with an empty header
	Index bool
}

// Write saves the tables to path, replacing any existing file
func (w *Writer) Write(path string, tables ...*core.Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	seen := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t.Name, i)
		if seen[name] {
			return fmt.Errorf("duplicate sheet name %q", name)
		}
		seen[name] = true

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		if err := w.writeSheet(f, name, t, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeSheet(f *excelize.File, name string, t *core.Table, style int) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}

	header := make([]any, 0, len(t.Columns)+1)
	if w.Index {
		header = append(header, excelize.Cell{StyleID: style, Value: ""})
	}
	for _, c := range t.Columns {
		header = append(header, excelize.Cell{StyleID: style, Value: c})
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if w.Index {
			values = append([]any{i}, row...)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return sw.Flush()
}

// sheetName makes a table name usable as an Excel sheet name
func sheetName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("Sheet%d", i+1)
	}
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
