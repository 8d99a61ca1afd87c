package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"marketlens/internal/dataprocessing"
)

// Options configures text and workbook rendering.
type Options struct {
	BOMPrefix      bool // Add UTF-8 BOM for Excel compatibility
	CurrencySymbol string
}

// DefaultOptions writes a BOM and uses "$" for currency columns.
func DefaultOptions() Options {
	return Options{BOMPrefix: true, CurrencySymbol: DefaultCurrencySymbol}
}

func (o Options) symbol() string {
	if o.CurrencySymbol == "" {
		return DefaultCurrencySymbol
	}
	return o.CurrencySymbol
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, t *dataprocessing.Table, opts Options) error {
	if opts.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	headers := t.Columns()
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	cols := make([]dataprocessing.Column, len(headers))
	for j, name := range headers {
		cols[j], _ = t.Column(name)
	}
	record := make([]string, len(headers))
	for i := 0; i < t.Len(); i++ {
		for j, c := range cols {
			record[j] = formatCell(t.Value(i, c.Name), c, opts.symbol())
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
