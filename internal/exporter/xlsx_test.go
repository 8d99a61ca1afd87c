package exporter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"marketlens/internal/dataprocessing"
	"marketlens/internal/shared/testutil"
)

func TestWriteXLSX(t *testing.T) {
	table := summaryTable(t).WithFormat("avg_price", dataprocessing.FormatCurrency)
	other := dataprocessing.NewTable("k")

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []Sheet{{Name: "competitor_summary", Table: table}, {Name: "empty/view", Table: other}}, DefaultOptions()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"competitor_summary", "empty_view"}, f.GetSheetList())

	header, err := f.GetCellValue("competitor_summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "avg_price", header)

	price, err := f.GetCellValue("competitor_summary", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "105", price)
	priceStyle, err := f.GetCellStyle("competitor_summary", "B2")
	require.NoError(t, err)
	plainStyle, err := f.GetCellStyle("competitor_summary", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, plainStyle, priceStyle, "currency cells carry a number format")

	visits, err := f.GetCellValue("competitor_summary", "C3")
	require.NoError(t, err)
	assert.Equal(t, "0.125", visits)
}

func TestWriteXLSX_ReadBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []Sheet{{Name: "t", Table: summaryTable(t)}}, DefaultOptions()))

	back, err := dataprocessing.ReadWorkbook(&buf, 0)
	require.NoError(t, err)

	assert.Equal(t, summaryTable(t).Columns(), back.Columns())
	assert.Equal(t, "ACME", back.Value(0, "seller").Text())
	assert.Equal(t, "119.995", back.Value(1, "avg_price").Text())
	assert.True(t, back.Value(1, "seen").IsNull())
}

func TestWriteXLSX_NoSheets(t *testing.T) {
	assert.Error(t, WriteXLSX(&bytes.Buffer{}, nil, DefaultOptions()))
}

func TestSheetName(t *testing.T) {
	used := make(map[string]bool)

	assert.Equal(t, "top_categories_by_availability", sheetName("top_categories_by_availability", used))
	long := strings.Repeat("x", 40)
	first := sheetName(long, used)
	second := sheetName(long, used)
	assert.Len(t, first, 31)
	assert.Len(t, second, 31)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "a_b_c", sheetName("a[b]c", used))
}

func TestFileExporter_ExportReport(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	table, _ := dataprocessing.Normalize(mustRaw(t))
	report, err := dataprocessing.NewAnalyzer(logger, dataprocessing.DefaultAnalyzerConfig()).
		Competition(context.Background(), table, dataprocessing.Params{OEM: "1001"})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	files := NewFileExporter(dir, DefaultOptions(), logger)

	paths, err := files.ExportReport(context.Background(), report, FormatCSV, FormatXLSX)
	require.NoError(t, err)

	assert.Len(t, paths, len(report.Views)+1)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.FileExists(t, filepath.Join(dir, "competition.xlsx"))
	assert.FileExists(t, filepath.Join(dir, "competition_competitor_summary.csv"))

	summary, err := os.ReadFile(filepath.Join(dir, "competition_competitor_summary.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "ACME,$100.00")
	assert.True(t, logs.ContainsMessage("report exported"))
}

func TestFileExporter_UnsupportedFormat(t *testing.T) {
	report := &dataprocessing.Report{Kind: "market", Views: []dataprocessing.View{{Name: "v", Table: dataprocessing.NewTable("a")}}}

	_, err := NewFileExporter(t.TempDir(), DefaultOptions(), nil).ExportReport(context.Background(), report, Format("pdf"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("json")
	assert.Error(t, err)
}

func mustRaw(t *testing.T) *dataprocessing.Table {
	t.Helper()
	raw, err := dataprocessing.ReadCSV(bytes.NewReader(testutil.ListingsCSV(t, testutil.ListingRecords)), 0)
	require.NoError(t, err)
	return raw
}
