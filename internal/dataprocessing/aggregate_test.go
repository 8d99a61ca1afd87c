package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Reducers(t *testing.T) {
	table := fixture(t)

	out, err := Aggregate(table, []string{ColSeller},
		Measure{Field: ColVisits, Reducer: Sum, As: "visits_sum"},
		Measure{Field: ColPrice, Reducer: Mean, As: "price_mean"},
		Measure{Reducer: Count, As: "rows"},
		Measure{Field: ColTitle, Reducer: CountDistinct, As: "titles"},
		Measure{Field: ColTitle, Reducer: First, As: "first_title"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{ColSeller, "visits_sum", "price_mean", "rows", "titles", "first_title"}, out.Columns())
	assert.Equal(t, []string{"ACME", "BETA", "GAMMA"}, column(t, out, ColSeller), "groups keep first-appearance order")
	assert.Equal(t, []float64{150, 120, 10}, numbers(t, out, "visits_sum"))
	assert.InDelta(t, 136.6667, number(t, out, 0, "price_mean"), 0.001)
	assert.Equal(t, []float64{3, 2, 1}, numbers(t, out, "rows"))
	assert.Equal(t, []float64{2, 2, 1}, numbers(t, out, "titles"))
	assert.Equal(t, []string{"Filtro aceite A", "Filtro aceite C", "Bujia D"}, column(t, out, "first_title"))
}

func TestAggregate_ConservesSum(t *testing.T) {
	table := fixture(t)

	for _, key := range []string{ColSeller, ColOEM, ColCategory, ColTitle} {
		t.Run(key, func(t *testing.T) {
			out, err := Aggregate(table, []string{key}, Measure{Field: ColVisits, Reducer: Sum})
			require.NoError(t, err)
			total := 0.0
			for _, v := range numbers(t, out, ColVisits) {
				total += v
			}
			assert.Equal(t, 280.0, total)
		})
	}
}

func TestAggregate_NullHandling(t *testing.T) {
	table := mustTable([]string{"k", "v"},
		[]Value{String("a"), Number(2)},
		[]Value{Null(), Number(5)},
		[]Value{String("a"), Null()},
		[]Value{String("b"), Null()},
		[]Value{Null(), Number(1)},
	)

	out, err := Aggregate(table, []string{"k"},
		Measure{Field: "v", Reducer: Sum, As: "sum"},
		Measure{Field: "v", Reducer: Mean, As: "mean"},
		Measure{Field: "v", Reducer: Count, As: "count"},
	)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, "a", out.Value(0, "k").Text())
	assert.True(t, out.Value(1, "k").IsNull(), "null keys form their own group")
	assert.Equal(t, "b", out.Value(2, "k").Text())

	assert.Equal(t, []float64{2, 6, 0}, numbers(t, out, "sum"))
	assert.Equal(t, 2.0, number(t, out, 0, "mean"))
	assert.Equal(t, 3.0, number(t, out, 1, "mean"))
	assert.True(t, out.Value(2, "mean").IsNull(), "mean of only nulls is null")
	assert.Equal(t, []float64{1, 2, 0}, numbers(t, out, "count"))

	dropped := DropNullKeys(table, "k")
	assert.Equal(t, 3, dropped.Len())
}

func TestAggregate_Errors(t *testing.T) {
	table := fixture(t)

	_, err := Aggregate(table, []string{"region"}, Measure{Field: ColVisits, Reducer: Sum})
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"region"}, se.Missing)

	_, err = Aggregate(table, []string{ColSeller}, Measure{Field: ColVisits, Reducer: "median"})
	assert.Error(t, err)
	assert.False(t, IsSchemaError(err))
}

func TestAggregate_EmptyInput(t *testing.T) {
	out, err := Aggregate(NewTable("k", "v"), []string{"k"}, Measure{Field: "v", Reducer: Sum})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, []string{"k", "v"}, out.Columns())
}
