package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossEntitySummary(t *testing.T) {
	out, err := CrossEntitySummary(fixture(t), "ACME")
	require.NoError(t, err)

	assert.Equal(t, summaryColumns, out.Columns())
	require.Equal(t, 2, out.Len(), "repeated snapshots collapse to one row per listing identity")

	assert.Equal(t, []string{"Filtro aire B", "Filtro aceite A"}, column(t, out, ColTitle))
	assert.Equal(t, []float64{30, 70}, numbers(t, out, ColVisits), "latest snapshot wins")
	assert.Equal(t, []float64{3, 3}, numbers(t, out, ColListingCount))
	assert.Equal(t, []float64{30, 120}, numbers(t, out, ColOEMVisits))
	assert.Equal(t, []float64{75, 75}, numbers(t, out, ColSellerEfficiency))
	assert.Equal(t, []float64{1, 0.6}, numbers(t, out, ColOEMEfficiency))
	for _, v := range numbers(t, out, ColCategoryHealthAvg) {
		assert.InDelta(t, 0.75, v, 1e-9)
	}
}

func TestCrossEntitySummary_InputColumnsNamedLikeDerived(t *testing.T) {
	table := fixture(t).
		WithColumn(ColListingCount, func(Row) Value { return Number(-1) }).
		WithColumn(ColOEMVisits, func(Row) Value { return Number(-1) }).
		WithColumn(ColOEMEfficiency, func(Row) Value { return String("stale") })

	out, err := CrossEntitySummary(table, "ACME")
	require.NoError(t, err)

	assert.Equal(t, summaryColumns, out.Columns())
	assert.Equal(t, []float64{3, 3}, numbers(t, out, ColListingCount))
	assert.Equal(t, []float64{30, 120}, numbers(t, out, ColOEMVisits))
	assert.Equal(t, []float64{1, 0.6}, numbers(t, out, ColOEMEfficiency))
}

func TestCrossEntitySummary_UniqueIdentity(t *testing.T) {
	table := fixture(t)
	sellers, err := DistinctValues(table, ColSeller)
	require.NoError(t, err)

	for _, seller := range sellers {
		t.Run(seller, func(t *testing.T) {
			out, err := CrossEntitySummary(table, seller)
			require.NoError(t, err)
			seen := make(map[string]bool)
			for i := 0; i < out.Len(); i++ {
				k := rowKey(out, i, summaryIdentity)
				assert.False(t, seen[k], "duplicate identity at row %d", i)
				seen[k] = true
			}
		})
	}
}

func TestCrossEntitySummary_FillsMissingDerivedValues(t *testing.T) {
	table := fixture(t).WithColumn(ColHealth, func(Row) Value { return Null() })

	out, err := CrossEntitySummary(table, "GAMMA")
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, 0.0, number(t, out, 0, ColCategoryHealthAvg))
	assert.Equal(t, 0.2, number(t, out, 0, ColOEMEfficiency))
}

func TestCrossEntitySummary_Errors(t *testing.T) {
	_, err := CrossEntitySummary(fixture(t), "NOBODY")
	assert.ErrorIs(t, err, ErrEmptyResult)

	noPermalink, err := fixture(t).Select(ColSeller, ColCategory, ColTitle, ColOEM, ColVisits)
	require.NoError(t, err)
	_, err = CrossEntitySummary(noPermalink, "ACME")
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.ElementsMatch(t, []string{ColAvailableQuantity, ColHealth, ColPermalink, ColListingID}, se.Missing)
}
