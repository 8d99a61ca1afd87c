package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"marketlens/internal/dataprocessing"
)

// Sheet is one table written to a workbook.
type Sheet struct {
	Name  string
	Table *dataprocessing.Table
}

const maxSheetName = 31

// sheetName makes a view name acceptable to Excel.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if clean == "" {
		clean = "Sheet"
	}
	if len(clean) > maxSheetName {
		clean = clean[:maxSheetName]
	}
	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		base := clean
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// WriteXLSX writes each sheet with a header row. Numbers, dates and bools
// are stored as native cell values; currency columns get a two-decimal
// number format with the configured symbol.
func WriteXLSX(w io.Writer, sheets []Sheet, opts Options) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	numFmt := fmt.Sprintf(`"%s"#,##0.00`, opts.symbol())
	currencyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("failed to create currency style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool)
	for i, sheet := range sheets {
		name := sheetName(sheet.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, sheet.Table, headerStyle, currencyStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, t *dataprocessing.Table, headerStyle, currencyStyle int) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", name, err)
	}

	headers := t.Columns()
	header := make([]interface{}, len(headers))
	cols := make([]dataprocessing.Column, len(headers))
	for j, h := range headers {
		header[j] = excelize.Cell{StyleID: headerStyle, Value: h}
		cols[j], _ = t.Column(h)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", name, err)
	}

	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			v := t.Value(i, c.Name)
			cell := excelize.Cell{Value: cellValue(v)}
			if c.Format == dataprocessing.FormatCurrency && v.Kind() == dataprocessing.KindNumber {
				cell.StyleID = currencyStyle
			}
			row[j] = cell
		}
		axis, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(axis, row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i, name, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", name, err)
	}
	return nil
}

func cellValue(v dataprocessing.Value) interface{} {
	switch v.Kind() {
	case dataprocessing.KindNull:
		return nil
	case dataprocessing.KindNumber:
		f, _ := v.Float()
		return f
	case dataprocessing.KindBool:
		b, _ := v.BoolValue()
		return b
	default:
		return v.Text()
	}
}
