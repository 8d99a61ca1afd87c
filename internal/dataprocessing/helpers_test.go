package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var fixtureHeaders = []string{
	"Fecha", "ID", "Title", "Seller2", "OEM", "description", "Price", "visits", "health",
	"Available Quantity", "permalink", "tags", "shipping", "date_created", "last_updated",
}

// fixtureRecords holds six snapshot rows. Row 5 is a later snapshot of row 1.
var fixtureRecords = [][]string{
	{"2024-01-10", "101", "Filtro aceite A", "ACME", "1001", "Filtros", "100", "50", "0.8", "10", "https://x/101",
		"['cuota-simple-3', 'good_quality_thumbnail']", "{'free_shipping': True, 'mode': 'me2'}",
		"2023-05-10T14:22:10.000-04:00", "2024-01-09T10:00:00.000Z"},
	{"2024-01-10", "102", "Filtro aire B", "ACME", "1002", "Filtros", "200", "30", "0.6", "5", "https://x/102",
		"['catalog_listing_eligible']", "{'free_shipping': False, 'mode': 'me2'}", "", ""},
	{"2024-01-11", "201", "Filtro aceite C", "BETA", "1001", "Filtros", "120", "80", "0.9", "20", "https://x/201",
		"['cuota-simple-12']", "{'free_shipping': True}", "", ""},
	{"2024-01-12", "301", "Bujia D", "GAMMA", "1003", "Encendido", "50", "10", "0.5", "100", "https://x/301",
		"[]", "{'free_shipping': False}", "", ""},
	{"2024-01-15", "101", "Filtro aceite A", "ACME", "1001", "Filtros", "110", "70", "0.85", "8", "https://x/101",
		"['cuota-simple-3', 'good_quality_thumbnail']", "{'free_shipping': True, 'mode': 'me2'}", "", ""},
	{"2024-02-01", "202", "Bujia E", "BETA", "1003", "Encendido", "60", "40", "0.7", "15", "https://x/202",
		"", "{'free_shipping': None}", "", ""},
}

func rawFixture(t *testing.T) *Table {
	t.Helper()
	return rawTable(fixtureHeaders, fixtureRecords)
}

func fixture(t *testing.T) *Table {
	t.Helper()
	table, _ := Normalize(rawFixture(t))
	require.Equal(t, len(fixtureRecords), table.Len())
	return table
}

// column returns the text of every cell of a column.
func column(t *testing.T, table *Table, name string) []string {
	t.Helper()
	require.True(t, table.Has(name), "missing column %s", name)
	out := make([]string, table.Len())
	for i := range out {
		out[i] = table.Value(i, name).Text()
	}
	return out
}

func number(t *testing.T, table *Table, i int, name string) float64 {
	t.Helper()
	f, ok := table.Value(i, name).Float()
	require.True(t, ok, "row %d column %s is not numeric: %q", i, name, table.Value(i, name).Text())
	return f
}

func numbers(t *testing.T, table *Table, name string) []float64 {
	t.Helper()
	out := make([]float64, table.Len())
	for i := range out {
		out[i] = number(t, table, i, name)
	}
	return out
}

func mustTable(columns []string, rows ...[]Value) *Table {
	t := NewTable(columns...)
	for _, r := range rows {
		t.AppendRow(r...)
	}
	return t
}
