package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSellers(t *testing.T) {
	table := fixture(t)

	tests := []struct {
		name       string
		oem        string
		metric     string
		topN       int
		wantSingle bool
		wantTopN   int
		wantOrder  []string
		wantValues []float64
	}{
		{"mean price", "1001", ColPrice, 0, false, 2, []string{"BETA", "ACME"}, []float64{120, 105}},
		{"total visits", "1001", ColVisits, 0, false, 2, []string{"ACME", "BETA"}, []float64{120, 80}},
		{"top one", "1001", ColVisits, 1, false, 1, []string{"ACME"}, []float64{120}},
		{"request clamped to sellers", "1003", ColHealth, 40, false, 2, []string{"BETA", "GAMMA"}, []float64{0.7, 0.5}},
		{"single seller", "1002", ColAvailableQuantity, 5, true, 1, []string{"ACME"}, []float64{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, err := CompareSellers(table, tt.oem, tt.metric, tt.topN)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSingle, cmp.Single)
			assert.Equal(t, tt.wantTopN, cmp.TopN)
			assert.Equal(t, tt.wantOrder, column(t, cmp.Table, ColSeller))
			m, _ := ComparisonMetric(tt.metric)
			assert.Equal(t, tt.wantValues, numbers(t, cmp.Table, m.As))
		})
	}
}

func TestCompareSellers_Formats(t *testing.T) {
	price, err := CompareSellers(fixture(t), "1001", ColPrice, 0)
	require.NoError(t, err)
	col, ok := price.Table.Column(ColAvgPrice)
	require.True(t, ok)
	assert.Equal(t, FormatCurrency, col.Format)

	visits, err := CompareSellers(fixture(t), "1001", ColVisits, 0)
	require.NoError(t, err)
	col, ok = visits.Table.Column(ColTotalVisits)
	require.True(t, ok)
	assert.Equal(t, FormatPlain, col.Format)
}

func TestCompareSellers_Errors(t *testing.T) {
	table := fixture(t)

	_, err := CompareSellers(table, "9999", ColPrice, 0)
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = CompareSellers(table, "1001", "rating", 0)
	assert.Error(t, err)

	noPrice, err := table.Select(ColSeller, ColOEM)
	require.NoError(t, err)
	_, err = CompareSellers(noPrice, "1001", ColPrice, 0)
	assert.True(t, IsSchemaError(err))
}

func TestCompetitorSummary(t *testing.T) {
	out, err := CompetitorSummary(fixture(t), "1001")
	require.NoError(t, err)

	assert.Equal(t, []string{ColSeller, ColAvgPrice, ColAvgAvailableQuantity, ColAvgHealth, ColTotalVisits,
		ColTitle, ColListingID, ColPermalink}, out.Columns())
	require.Equal(t, 2, out.Len())

	assert.Equal(t, "ACME", out.Value(0, ColSeller).Text())
	assert.Equal(t, 105.0, number(t, out, 0, ColAvgPrice))
	assert.Equal(t, 9.0, number(t, out, 0, ColAvgAvailableQuantity))
	assert.InDelta(t, 0.825, number(t, out, 0, ColAvgHealth), 1e-9)
	assert.Equal(t, 120.0, number(t, out, 0, ColTotalVisits))
	assert.Equal(t, "Filtro aceite A", out.Value(0, ColTitle).Text())
	assert.Equal(t, "101", out.Value(0, ColListingID).Text())
	assert.Equal(t, "https://x/101", out.Value(0, ColPermalink).Text())

	col, ok := out.Column(ColAvgPrice)
	require.True(t, ok)
	assert.Equal(t, FormatCurrency, col.Format)
	col, _ = out.Column(ColTotalVisits)
	assert.Equal(t, FormatPlain, col.Format)
}

func TestMarkSelected(t *testing.T) {
	cmp, err := CompareSellers(fixture(t), "1001", ColVisits, 0)
	require.NoError(t, err)

	marked := MarkSelected(cmp.Table, "BETA")

	assert.Equal(t, []string{"false", "true"}, column(t, marked, ColSelected))
}

func TestComparisonMetrics(t *testing.T) {
	assert.Equal(t, []string{ColAvailableQuantity, ColHealth, ColPrice, ColVisits}, ComparisonMetrics())
}
