package exporter

import (
	"github.com/shopspring/decimal"

	"marketlens/internal/dataprocessing"
)

// DefaultCurrencySymbol prefixes currency columns.
const DefaultCurrencySymbol = "$"

// formatCurrency renders an amount with exactly two decimal places.
func formatCurrency(f float64, symbol string) string {
	return symbol + decimal.NewFromFloat(f).StringFixed(2)
}

// formatCell renders a cell for text exports. Currency columns get the
// symbol and two decimals; everything else keeps full precision.
func formatCell(v dataprocessing.Value, col dataprocessing.Column, symbol string) string {
	if col.Format == dataprocessing.FormatCurrency {
		if f, ok := v.Float(); ok && v.Kind() == dataprocessing.KindNumber {
			return formatCurrency(f, symbol)
		}
	}
	return v.Text()
}
