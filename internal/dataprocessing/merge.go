package dataprocessing

const (
	ColListingCount      = "listing_count"
	ColOEMVisits         = "oem_visits"
	ColSellerEfficiency  = "seller_efficiency"
	ColOEMEfficiency     = "oem_efficiency"
	ColCategoryHealthAvg = "category_health_mean"
)

// summaryIdentity identifies one row of the cross-entity summary.
var summaryIdentity = []string{ColCategory, ColTitle, ColOEM, ColSeller}

// summaryDerived are computed by CrossEntitySummary. Input columns of the
// same name are discarded.
var summaryDerived = []string{
	ColListingCount, ColOEMVisits, ColSellerEfficiency, ColOEMEfficiency, ColCategoryHealthAvg,
}

var summaryColumns = []string{
	ColSeller, ColCategory, ColTitle, ColOEM, ColVisits, ColAvailableQuantity, ColHealth,
	ColListingCount, ColOEMVisits, ColSellerEfficiency, ColPermalink, ColListingID,
	ColOEMEfficiency, ColCategoryHealthAvg,
}

// CrossEntitySummary builds the per-listing summary for one seller over the
// already date-filtered table. Every listing row of the seller is enriched
// with the seller's listing count for its category, the seller's visits for
// its OEM, the seller's overall efficiency, the seller's share of all OEM
// visits and the seller's mean health for the category. Derived gaps are
// filled with 0. The result has exactly one row per (category, title, oem,
// seller); when snapshots repeat a listing the latest record_date wins.
func CrossEntitySummary(filtered *Table, seller string) (*Table, error) {
	required := []string{ColSeller, ColCategory, ColTitle, ColOEM, ColVisits,
		ColAvailableQuantity, ColHealth, ColPermalink, ColListingID}
	if err := filtered.Require(required...); err != nil {
		return nil, withOperation(err, "cross-entity summary")
	}
	filtered = filtered.Drop(summaryDerived...)

	rows, err := FilterEquals(filtered, ColSeller, String(seller))
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, emptyResult("seller " + seller)
	}

	perCategory, err := Aggregate(rows, []string{ColCategory}, Measure{Reducer: Count, As: ColListingCount})
	if err != nil {
		return nil, err
	}
	perOEM, err := Aggregate(rows, []string{ColOEM}, Measure{Field: ColVisits, Reducer: Sum, As: ColOEMVisits})
	if err != nil {
		return nil, err
	}
	categoryHealth, err := Aggregate(rows, []string{ColCategory}, Measure{Field: ColHealth, Reducer: Mean, As: ColCategoryHealthAvg})
	if err != nil {
		return nil, err
	}
	share, err := ShareEfficiency(rows, filtered, ColOEM, ColVisits)
	if err != nil {
		return nil, err
	}
	share, err = share.Select(ColOEM, ColEfficiency)
	if err != nil {
		return nil, err
	}
	self, err := SelfEfficiency(rows, ColVisits, ColTitle)
	if err != nil {
		return nil, err
	}

	summary, err := LeftJoin(rows, perCategory, ColCategory)
	if err != nil {
		return nil, err
	}
	if summary, err = LeftJoin(summary, perOEM, ColOEM); err != nil {
		return nil, err
	}
	summary = summary.WithColumn(ColSellerEfficiency, func(Row) Value { return Number(self.Value) })
	summary = latestPerKey(summary, summaryIdentity, ColRecordDate)

	if summary, err = LeftJoin(summary, share.Rename(map[string]string{ColEfficiency: ColOEMEfficiency}), ColOEM); err != nil {
		return nil, err
	}
	if summary, err = LeftJoin(summary, categoryHealth, ColCategory); err != nil {
		return nil, err
	}
	summary = FillNull(summary, Number(0), ColListingCount, ColOEMVisits, ColOEMEfficiency, ColCategoryHealthAvg)
	return summary.Select(summaryColumns...)
}

// latestPerKey keeps one row per key: the one with the latest dateCol, the
// first such row on ties or when dates are missing. Kept rows stay in
// input order.
func latestPerKey(t *Table, keys []string, dateCol string) *Table {
	best := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		k := rowKey(t, i, keys)
		j, seen := best[k]
		if !seen {
			best[k] = i
			continue
		}
		cur, okCur := t.Value(i, dateCol).TimeValue()
		prev, okPrev := t.Value(j, dateCol).TimeValue()
		if okCur && (!okPrev || cur.After(prev)) {
			best[k] = i
		}
	}
	return t.Filter(func(r Row) bool {
		return best[rowKey(t, r.Index(), keys)] == r.Index()
	})
}
