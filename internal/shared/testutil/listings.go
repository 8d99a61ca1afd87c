package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ListingHeaders are the source headers of a marketplace listings export.
var ListingHeaders = []string{
	"Fecha", "ID", "Title", "Seller2", "OEM", "description", "Price", "visits", "health",
	"Available Quantity", "permalink", "tags", "shipping",
}

// ListingRecords is a small export with three sellers and three OEMs.
var ListingRecords = [][]string{
	{"2024-01-10", "101", "Filtro aceite A", "ACME", "1001", "Filtros", "100", "50", "0.8", "10", "https://x/101", "['cuota-simple-3']", "{'free_shipping': True}"},
	{"2024-01-10", "102", "Filtro aire B", "ACME", "1002", "Filtros", "200", "30", "0.6", "5", "https://x/102", "['catalog_listing_eligible']", "{'free_shipping': False}"},
	{"2024-01-11", "201", "Filtro aceite C", "BETA", "1001", "Filtros", "120", "80", "0.9", "20", "https://x/201", "['cuota-simple-12']", "{'free_shipping': True}"},
	{"2024-01-12", "301", "Bujia D", "GAMMA", "1003", "Encendido", "50", "10", "0.5", "100", "https://x/301", "[]", "{'free_shipping': False}"},
}

// CompetitorRecords is a competitor export for OEM 1001 with text ids.
var CompetitorRecords = [][]string{
	{"2024-01-11", "MLA-9", "Filtro aceite Z", "DELTA", "1001", "Filtros", "95", "200", "0.95", "40", "https://x/z", "['cuota-simple-6']", "{'free_shipping': True}"},
}

// ListingsWorkbook returns an xlsx workbook holding the records.
func ListingsWorkbook(t *testing.T, records [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Listings"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := append([][]string{ListingHeaders}, records...)
	for i, rec := range rows {
		cells := make([]interface{}, len(rec))
		for j, v := range rec {
			cells[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Listings", cell, &cells); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// ListingsCSV returns the records as CSV text with a header row.
func ListingsCSV(t *testing.T, records [][]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(append([][]string{ListingHeaders}, records...)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return buf.Bytes()
}

// WriteListingsFile writes a workbook or CSV, chosen by the extension of
// name, into dir and returns its path.
func WriteListingsFile(t *testing.T, dir, name string, records [][]string) string {
	t.Helper()
	data := ListingsCSV(t, records)
	if filepath.Ext(name) == ".xlsx" {
		data = ListingsWorkbook(t, records)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
