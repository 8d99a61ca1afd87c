package dataprocessing

import (
	"fmt"
	"sort"
)

// Per-seller comparison columns.
const (
	ColAvgPrice             = "avg_price"
	ColAvgAvailableQuantity = "avg_available_quantity"
	ColAvgHealth            = "avg_health"
	ColSelected             = "selected"
)

// DefaultCompareTopN is the number of sellers shown when none is requested.
const DefaultCompareTopN = 10

// comparisonMetrics maps comparable fields to how they are reduced per seller.
var comparisonMetrics = map[string]Measure{
	ColPrice:             {Field: ColPrice, Reducer: Mean, As: ColAvgPrice},
	ColAvailableQuantity: {Field: ColAvailableQuantity, Reducer: Mean, As: ColAvgAvailableQuantity},
	ColHealth:            {Field: ColHealth, Reducer: Mean, As: ColAvgHealth},
	ColVisits:            {Field: ColVisits, Reducer: Sum, As: ColTotalVisits},
}

// ComparisonMetric returns the per-seller measure for a comparable field.
func ComparisonMetric(field string) (Measure, bool) {
	m, ok := comparisonMetrics[field]
	return m, ok
}

// ComparisonMetrics lists the comparable fields in a stable order.
func ComparisonMetrics() []string {
	names := make([]string, 0, len(comparisonMetrics))
	for k := range comparisonMetrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Comparison is the ranking of sellers for one OEM and metric.
type Comparison struct {
	OEM     string `json:"oem"`
	Metric  string `json:"metric"`
	Sellers int    `json:"sellers"`
	TopN    int    `json:"top_n"`
	// Single is set when only one seller carries the OEM; Table then holds
	// that seller's row and no ranking was applied.
	Single bool   `json:"single"`
	Table  *Table `json:"table"`
}

// CompareSellers restricts t to the OEM, reduces metric per seller and
// ranks the sellers. topN <= 0 selects min(DefaultCompareTopN, sellers);
// larger requests are clamped to the number of sellers.
func CompareSellers(t *Table, oem, metric string, topN int) (*Comparison, error) {
	m, ok := ComparisonMetric(metric)
	if !ok {
		return nil, fmt.Errorf("compare sellers: unsupported metric %q: %w", metric, ErrInvalidParameter)
	}
	if err := t.Require(ColSeller, ColOEM, metric); err != nil {
		return nil, withOperation(err, "competitive comparison")
	}

	rows, err := FilterEquals(t, ColOEM, String(oem))
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, emptyResult("oem " + oem)
	}

	perSeller, err := Aggregate(DropNullKeys(rows, ColSeller), []string{ColSeller}, m)
	if err != nil {
		return nil, err
	}
	if metric == ColPrice {
		perSeller = perSeller.WithFormat(m.name(), FormatCurrency)
	}
	if perSeller.Len() == 0 {
		return nil, emptyResult("sellers for oem " + oem)
	}

	cmp := &Comparison{OEM: oem, Metric: metric, Sellers: perSeller.Len()}
	if perSeller.Len() == 1 {
		cmp.Single = true
		cmp.TopN = 1
		cmp.Table = perSeller
		return cmp, nil
	}

	cmp.TopN = ClampTopN(topN, min(DefaultCompareTopN, perSeller.Len()), perSeller.Len())
	if cmp.Table, err = TopN(perSeller, m.name(), cmp.TopN); err != nil {
		return nil, err
	}
	return cmp, nil
}

// CompetitorSummary aggregates each seller carrying the OEM: mean price,
// quantity and health, total visits, and the first title, listing id and
// permalink seen. avg_price is marked as a currency column.
func CompetitorSummary(t *Table, oem string) (*Table, error) {
	required := []string{ColSeller, ColOEM, ColPrice, ColAvailableQuantity, ColHealth, ColVisits,
		ColTitle, ColListingID, ColPermalink}
	if err := t.Require(required...); err != nil {
		return nil, withOperation(err, "competitor summary")
	}
	rows, err := FilterEquals(t, ColOEM, String(oem))
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, emptyResult("oem " + oem)
	}

	summary, err := Aggregate(DropNullKeys(rows, ColSeller), []string{ColSeller},
		comparisonMetrics[ColPrice],
		comparisonMetrics[ColAvailableQuantity],
		comparisonMetrics[ColHealth],
		comparisonMetrics[ColVisits],
		Measure{Field: ColTitle, Reducer: First, As: ColTitle},
		Measure{Field: ColListingID, Reducer: First, As: ColListingID},
		Measure{Field: ColPermalink, Reducer: First, As: ColPermalink},
	)
	if err != nil {
		return nil, err
	}
	return summary.WithFormat(ColAvgPrice, FormatCurrency), nil
}

// MarkSelected adds a boolean column flagging the rows of one seller.
func MarkSelected(t *Table, seller string) *Table {
	return t.WithColumn(ColSelected, func(r Row) Value {
		return Bool(r.Get(ColSeller).Text() == seller)
	})
}
