// Package dataprocessing is the aggregation and ranking engine behind the
// listing analytics. It loads marketplace exports, normalizes them to a
// canonical schema and derives market, seller and competition views.
//
// # Architecture
//
// The package is organized around an immutable, dynamically typed Table:
//
// 1. Reader: loads xlsx workbooks and CSV files into raw tables, enforcing a size limit
// 2. Normalizer: renames source headers to canonical names and coerces types
// 3. Primitives: date filter, grouped aggregation, ranking, joins and efficiency ratios
// 4. Analyzer: composes the primitives into market, seller and competition reports
//
// Every operation checks the columns it needs and returns a *SchemaError
// naming the missing ones instead of failing on first access.
//
// # Usage
//
//	raw, err := dataprocessing.ReadFile("listings.xlsx", dataprocessing.DefaultMaxFileSize)
//	if err != nil {
//	    return err
//	}
//	table, _ := dataprocessing.Normalize(raw)
//
//	analyzer := dataprocessing.NewAnalyzer(logger, dataprocessing.DefaultAnalyzerConfig())
//	report, err := analyzer.Market(ctx, table, dataprocessing.Params{TopN: 20})
//
// Ranking a single metric:
//
//	perSeller, _ := dataprocessing.Aggregate(table, []string{dataprocessing.ColSeller},
//	    dataprocessing.Measure{Field: dataprocessing.ColVisits, Reducer: dataprocessing.Sum})
//	top, _ := dataprocessing.TopN(perSeller, dataprocessing.ColVisits, 10)
//
// # Empty results
//
// A date range or entity filter that leaves no rows yields ErrEmptyResult.
// Within a report each view is computed independently; a view that fails
// carries its error and the remaining views are still returned.
package dataprocessing
