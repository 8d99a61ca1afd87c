package dataprocessing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/shared/testutil"
)

func newTestAnalyzer(t *testing.T) (*Analyzer, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewAnalyzer(logger, AnalyzerConfig{}), handler
}

func viewNames(r *Report) []string {
	names := make([]string, len(r.Views))
	for i, v := range r.Views {
		names[i] = v.Name
	}
	return names
}

func TestAnalyzer_Market(t *testing.T) {
	analyzer, handler := newTestAnalyzer(t)

	report, err := analyzer.Market(context.Background(), fixture(t), Params{TopN: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"top_sellers_by_visits", "top_categories_by_visits", "top_categories_by_health",
		"top_categories_by_availability", "oem_efficiency", "category_efficiency", "market_results"}, viewNames(report))
	assert.Empty(t, report.Failed())
	assert.Equal(t, 6, report.Rows)
	require.NotNil(t, report.Start)
	assert.True(t, day(2024, 1, 10).Equal(*report.Start))

	sellers, _ := report.View("top_sellers_by_visits")
	assert.Equal(t, []string{"ACME", "BETA"}, column(t, sellers.Table, ColSeller))

	results, _ := report.View("market_results")
	assert.Contains(t, results.Table.Columns(), "top_sellers_by_visits.seller")
	assert.Equal(t, 2, results.Table.Len())

	assert.True(t, handler.ContainsMessage("report computed"))
}

func TestAnalyzer_MarketSkipsBlankKeys(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)
	records := append([][]string{
		{"2024-01-10", "999", "Sin vendedor", "", "1001", "", "10", "500", "0.9", "1", "https://x/999", "", "", "", ""},
	}, fixtureRecords...)
	table, _ := Normalize(rawTable(fixtureHeaders, records))

	report, err := analyzer.Market(context.Background(), table, Params{TopN: 3})
	require.NoError(t, err)

	sellers, _ := report.View("top_sellers_by_visits")
	assert.Equal(t, []string{"ACME", "BETA", "GAMMA"}, column(t, sellers.Table, ColSeller))

	categories, _ := report.View("top_categories_by_visits")
	assert.NotContains(t, column(t, categories.Table, ColCategory), "")
	assert.Equal(t, "Filtros", categories.Table.Value(0, ColCategory).Text())
}

func TestAnalyzer_MarketIsolatesSchemaFailures(t *testing.T) {
	analyzer, handler := newTestAnalyzer(t)
	noHealth, err := fixture(t).Select(ColRecordDate, ColSeller, ColCategory, ColOEM, ColVisits, ColAvailableQuantity)
	require.NoError(t, err)

	report, err := analyzer.Market(context.Background(), noHealth, Params{})
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "top_categories_by_health", failed[0].Name)
	assert.Equal(t, "schema", failed[0].Error.Kind)
	assert.Equal(t, []string{ColHealth}, failed[0].Error.Missing)
	assert.Nil(t, failed[0].Table)

	ok, _ := report.View("top_sellers_by_visits")
	assert.NotNil(t, ok.Table)
	assert.True(t, handler.ContainsMessage("view not computed"))
}

func TestAnalyzer_EmptyDateRange(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)

	_, err := analyzer.Market(context.Background(), fixture(t), Params{
		Range: DateRange{Start: day(2030, 1, 1), End: day(2030, 1, 2)},
	})
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = analyzer.Market(context.Background(), fixture(t), Params{
		Range: DateRange{Start: day(2024, 2, 1), End: day(2024, 1, 1)},
	})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestAnalyzer_Seller(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)

	report, err := analyzer.Seller(context.Background(), fixture(t), Params{Seller: "ACME"})
	require.NoError(t, err)
	assert.Empty(t, report.Failed())
	assert.Equal(t, 3, report.Rows)

	titles, _ := report.View("top_titles_by_visits")
	assert.Equal(t, []string{"Filtro aceite A", "Filtro aire B"}, column(t, titles.Table, ColTitle))
	assert.Equal(t, []float64{120, 30}, numbers(t, titles.Table, ColTotalVisits))

	eff, _ := report.View("seller_efficiency")
	assert.Equal(t, 75.0, number(t, eff.Table, 0, ColEfficiency))

	share, _ := report.View("oem_market_share")
	assert.Equal(t, []string{"1002", "1001"}, column(t, share.Table, ColOEM))

	summary, _ := report.View("cross_entity_summary")
	assert.Equal(t, 2, summary.Table.Len())

	_, err = analyzer.Seller(context.Background(), fixture(t), Params{Seller: "NOBODY"})
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = analyzer.Seller(context.Background(), fixture(t), Params{})
	assert.Error(t, err)
}

func TestAnalyzer_Competition(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)

	report, err := analyzer.Competition(context.Background(), fixture(t), Params{OEM: "1002", Seller: "ACME"})
	require.NoError(t, err)
	assert.Empty(t, report.Failed())

	price, _ := report.View("price_by_seller")
	assert.True(t, price.Single, "one seller carries the OEM")
	assert.Equal(t, []string{"true"}, column(t, price.Table, ColSelected))

	catalog, _ := report.View("catalog_status")
	assert.Equal(t, []string{"catalog_listing_eligible"}, column(t, catalog.Table, ColCatalogStatus))

	shipping, _ := report.View("free_shipping")
	assert.Equal(t, []float64{0}, numbers(t, shipping.Table, "free_shipping_share"))

	_, err = analyzer.Competition(context.Background(), fixture(t), Params{OEM: "0000"})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestAnalyzer_CompetitionWithoutTags(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)
	noTags, err := fixture(t).Select(ColSeller, ColOEM, ColPrice, ColVisits, ColHealth, ColAvailableQuantity,
		ColTitle, ColListingID, ColPermalink, ColRecordDate)
	require.NoError(t, err)

	report, err := analyzer.Competition(context.Background(), noTags, Params{OEM: "1001"})
	require.NoError(t, err)

	var failed []string
	for _, v := range report.Failed() {
		failed = append(failed, v.Name)
	}
	assert.Equal(t, []string{"installment_tiers", "catalog_status", "free_shipping"}, failed)

	visits, _ := report.View("visits_by_seller")
	assert.False(t, visits.Single)
	assert.Equal(t, []string{"ACME", "BETA"}, column(t, visits.Table, ColSeller))
}

func TestAnalyzer_Compare(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)

	cmp, err := analyzer.Compare(context.Background(), fixture(t), Params{OEM: "1003", CompareTopN: 1}, ColVisits)
	require.NoError(t, err)
	assert.Equal(t, 2, cmp.Sellers)
	assert.Equal(t, []string{"BETA"}, column(t, cmp.Table, ColSeller))
}

func TestReport_MarshalJSON(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t)
	noHealth, err := fixture(t).Select(ColRecordDate, ColSeller, ColCategory, ColOEM, ColVisits, ColAvailableQuantity)
	require.NoError(t, err)
	report, err := analyzer.Market(context.Background(), noHealth, Params{TopN: 1})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded struct {
		Kind  string `json:"kind"`
		Views []struct {
			Name  string          `json:"name"`
			Table json.RawMessage `json:"table"`
			Error *ViewError      `json:"error"`
		} `json:"views"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ReportMarket, decoded.Kind)
	require.Len(t, decoded.Views, 7)
	assert.Nil(t, decoded.Views[2].Table)
	require.NotNil(t, decoded.Views[2].Error)
	assert.Equal(t, []string{ColHealth}, decoded.Views[2].Error.Missing)
}
