package dataprocessing

// competitorColumns are required of a competitor file on its own, before
// it is appended to the primary table.
var competitorColumns = []string{ColSeller, ColOEM, ColRecordDate}

// CombineStats describes an append of competitor data.
type CombineStats struct {
	PrimaryRows    int
	CompetitorRows int
	AddedColumns   []string
	ListingIDNum   bool
}

// AppendCompetitors stacks a normalized competitor table under the primary
// one. The competitor table is validated independently. listing_id is
// numeric in the result only when every value of both tables is numeric,
// text otherwise; oem is always text. Columns missing on either side are
// null.
func AppendCompetitors(primary, competitors *Table) (*Table, CombineStats, error) {
	stats := CombineStats{PrimaryRows: primary.Len(), CompetitorRows: competitors.Len()}
	if err := competitors.Require(competitorColumns...); err != nil {
		return nil, stats, withOperation(err, "competitor file")
	}

	for _, c := range competitors.Columns() {
		if !primary.Has(c) {
			stats.AddedColumns = append(stats.AddedColumns, c)
		}
	}

	if primary.Has(ColListingID) || competitors.Has(ColListingID) {
		var numeric bool
		primary, numeric = coerceIdentifier(primary, ColListingID, []*Table{competitors})
		competitors, _ = coerceIdentifier(competitors, ColListingID, []*Table{primary})
		stats.ListingIDNum = numeric
	}
	for _, t := range []**Table{&primary, &competitors} {
		if (*t).Has(ColOEM) {
			*t = (*t).WithColumn(ColOEM, func(r Row) Value { return coerceText(r.Get(ColOEM)) })
		}
	}

	return Concat(primary, competitors), stats, nil
}
