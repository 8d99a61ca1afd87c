package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Report kinds.
const (
	ReportMarket      = "market"
	ReportSeller      = "seller"
	ReportCompetition = "competition"
	ReportTags        = "tags"
)

// Params selects the slice of data a report is computed over.
type Params struct {
	Range       DateRange
	TopN        int
	Seller      string
	OEM         string
	CompareTopN int
}

// View is one named result of a report. A view that could not be computed
// carries its error and no table; the other views of the report are
// unaffected.
type View struct {
	Name   string     `json:"name"`
	Table  *Table     `json:"table,omitempty"`
	Single bool       `json:"single,omitempty"`
	Error  *ViewError `json:"error,omitempty"`
	err    error
}

// Err returns the error that prevented the view from being computed.
func (v View) Err() error { return v.err }

// ViewError is the client-facing description of a failed view.
type ViewError struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Missing []string `json:"missing_columns,omitempty"`
}

func newViewError(err error) *ViewError {
	ve := &ViewError{Kind: "error", Message: err.Error()}
	var se *SchemaError
	switch {
	case errors.As(err, &se):
		ve.Kind = "schema"
		ve.Missing = se.Missing
	case errors.Is(err, ErrEmptyResult):
		ve.Kind = "empty"
	}
	return ve
}

// Report is the set of views computed for one request.
type Report struct {
	Kind   string     `json:"kind"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
	Rows   int        `json:"rows"`
	Seller string     `json:"seller,omitempty"`
	OEM    string     `json:"oem,omitempty"`
	Views  []View     `json:"views"`
}

// View returns the named view.
func (r *Report) View(name string) (View, bool) {
	for _, v := range r.Views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// Failed returns the views that carry an error.
func (r *Report) Failed() []View {
	var failed []View
	for _, v := range r.Views {
		if v.err != nil {
			failed = append(failed, v)
		}
	}
	return failed
}

// AnalyzerConfig holds the tunables of the analyses.
type AnalyzerConfig struct {
	DefaultTopN int
	MaxTopN     int
	Tags        TagClassifier
}

// DefaultAnalyzerConfig returns the defaults used by the dashboard.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{DefaultTopN: 20, MaxTopN: 50, Tags: DefaultTagClassifier()}
}

// Analyzer computes market, seller and competition reports over a
// normalized table. It holds no data and is safe for concurrent use.
type Analyzer struct {
	logger *slog.Logger
	cfg    AnalyzerConfig
}

// NewAnalyzer creates an analyzer. Zero config fields fall back to the defaults.
func NewAnalyzer(logger *slog.Logger, cfg AnalyzerConfig) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultAnalyzerConfig()
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = def.DefaultTopN
	}
	if cfg.MaxTopN <= 0 {
		cfg.MaxTopN = def.MaxTopN
	}
	if cfg.Tags.NoneLabel == "" {
		cfg.Tags.NoneLabel = def.Tags.NoneLabel
	}
	if len(cfg.Tags.InstallmentMarkers) == 0 {
		cfg.Tags.InstallmentMarkers = def.Tags.InstallmentMarkers
	}
	if len(cfg.Tags.CatalogMarkers) == 0 {
		cfg.Tags.CatalogMarkers = def.Tags.CatalogMarkers
	}
	return &Analyzer{logger: logger, cfg: cfg}
}

// Config returns the effective configuration.
func (a *Analyzer) Config() AnalyzerConfig { return a.cfg }

// TopN resolves a requested N against the configured default and maximum.
func (a *Analyzer) TopN(requested int) int {
	return ClampTopN(requested, a.cfg.DefaultTopN, a.cfg.MaxTopN)
}

// Filter applies the date range of p. With an open range and no record_date
// column the table is used as is. An empty result is ErrEmptyResult.
func (a *Analyzer) Filter(t *Table, p Params) (*Table, error) {
	filtered := t
	if !p.Range.Start.IsZero() || !p.Range.End.IsZero() || t.Has(ColRecordDate) {
		var err error
		if filtered, err = FilterDateRange(t, p.Range); err != nil {
			return nil, err
		}
	}
	if filtered.Len() == 0 {
		return nil, emptyResult("date range")
	}
	return filtered, nil
}

type viewFunc func() (*Table, error)

func (a *Analyzer) run(ctx context.Context, report *Report, name string, fn viewFunc) {
	t, err := fn()
	v := View{Name: name, Table: t, err: err}
	if err != nil {
		v.Table = nil
		v.Error = newViewError(err)
		a.logger.WarnContext(ctx, "view not computed",
			slog.String("report", report.Kind),
			slog.String("view", name),
			slog.String("error", err.Error()))
	}
	report.Views = append(report.Views, v)
}

func (a *Analyzer) newReport(kind string, filtered *Table, p Params) *Report {
	r := &Report{Kind: kind, Rows: filtered.Len(), Seller: p.Seller, OEM: p.OEM}
	if bounds, ok := DateBounds(filtered); ok {
		r.Start, r.End = &bounds.Start, &bounds.End
	}
	return r
}

func (a *Analyzer) finish(ctx context.Context, r *Report, started time.Time) {
	a.logger.InfoContext(ctx, "report computed",
		slog.String("report", r.Kind),
		slog.Int("rows", r.Rows),
		slog.Int("views", len(r.Views)),
		slog.Int("failed_views", len(r.Failed())),
		slog.Duration("duration", time.Since(started)))
}

// rankedAggregate ranks the groups of key by m. Rows with a null key are
// not ranked.
func rankedAggregate(t *Table, key string, m Measure, n int) viewFunc {
	return func() (*Table, error) {
		agg, err := Aggregate(DropNullKeys(t, key), []string{key}, m)
		if err != nil {
			return nil, err
		}
		return TopN(agg, m.name(), n)
	}
}

func rankedEfficiency(t *Table, key string, n int) viewFunc {
	return func() (*Table, error) {
		eff, err := OccurrenceEfficiency(t, key, ColVisits)
		if err != nil {
			return nil, err
		}
		return TopN(eff, ColEfficiency, n)
	}
}

// Market computes the market-wide rankings.
func (a *Analyzer) Market(ctx context.Context, t *Table, p Params) (*Report, error) {
	started := time.Now()
	filtered, err := a.Filter(t, p)
	if err != nil {
		return nil, err
	}
	n := a.TopN(p.TopN)
	r := a.newReport(ReportMarket, filtered, p)

	a.run(ctx, r, "top_sellers_by_visits", rankedAggregate(filtered, ColSeller, comparisonMetrics[ColVisits], n))
	a.run(ctx, r, "top_categories_by_visits", rankedAggregate(filtered, ColCategory, comparisonMetrics[ColVisits], n))
	a.run(ctx, r, "top_categories_by_health", rankedAggregate(filtered, ColCategory, comparisonMetrics[ColHealth], n))
	a.run(ctx, r, "top_categories_by_availability", rankedAggregate(filtered, ColCategory, comparisonMetrics[ColAvailableQuantity], n))
	a.run(ctx, r, "oem_efficiency", rankedEfficiency(filtered, ColOEM, n))
	a.run(ctx, r, "category_efficiency", rankedEfficiency(filtered, ColCategory, n))

	var parts []View
	for _, v := range r.Views {
		if v.err == nil {
			parts = append(parts, v)
		}
	}
	a.run(ctx, r, "market_results", func() (*Table, error) { return sideBySide(parts), nil })

	a.finish(ctx, r, started)
	return r, nil
}

// Seller computes the strategy views of one seller.
func (a *Analyzer) Seller(ctx context.Context, t *Table, p Params) (*Report, error) {
	if p.Seller == "" {
		return nil, fmt.Errorf("seller report: seller: %w", ErrInvalidParameter)
	}
	started := time.Now()
	filtered, err := a.Filter(t, p)
	if err != nil {
		return nil, err
	}
	rows, err := FilterEquals(filtered, ColSeller, String(p.Seller))
	if err != nil {
		return nil, withOperation(err, "seller report")
	}
	if rows.Len() == 0 {
		return nil, emptyResult("seller " + p.Seller)
	}
	n := a.TopN(p.TopN)
	r := a.newReport(ReportSeller, rows, p)

	a.run(ctx, r, "top_titles_by_visits", rankedAggregate(rows, ColTitle, comparisonMetrics[ColVisits], n))
	a.run(ctx, r, "top_oems_by_visits", rankedAggregate(rows, ColOEM, comparisonMetrics[ColVisits], n))
	a.run(ctx, r, "listings_per_category", rankedAggregate(rows, ColCategory, Measure{Reducer: Count, As: ColListingCount}, n))
	a.run(ctx, r, "top_titles_by_availability", rankedAggregate(rows, ColTitle, Measure{Field: ColAvailableQuantity, Reducer: Sum, As: ColAvailableQuantity}, n))
	a.run(ctx, r, "oem_market_share", func() (*Table, error) {
		share, err := ShareEfficiency(rows, filtered, ColOEM, ColVisits)
		if err != nil {
			return nil, err
		}
		return TopN(share, ColEfficiency, n)
	})
	a.run(ctx, r, "category_health", rankedAggregate(rows, ColCategory, Measure{Field: ColHealth, Reducer: Mean, As: ColCategoryHealthAvg}, n))
	a.run(ctx, r, "seller_efficiency", func() (*Table, error) {
		self, err := SelfEfficiency(rows, ColVisits, ColTitle)
		if err != nil {
			return nil, err
		}
		out := NewTable(ColSeller, ColTotalVisits, ColDistinctTitles, ColEfficiency)
		out.AppendRow(String(p.Seller), Number(self.Total), Number(float64(self.Distinct)), Number(self.Value))
		return out, nil
	})
	a.run(ctx, r, "cross_entity_summary", func() (*Table, error) { return CrossEntitySummary(filtered, p.Seller) })

	a.finish(ctx, r, started)
	return r, nil
}

// comparisonViews pairs each comparison view with its metric.
var comparisonViews = []struct {
	name   string
	metric string
}{
	{"price_by_seller", ColPrice},
	{"availability_by_seller", ColAvailableQuantity},
	{"health_by_seller", ColHealth},
	{"visits_by_seller", ColVisits},
}

// Competition compares the sellers carrying one OEM.
func (a *Analyzer) Competition(ctx context.Context, t *Table, p Params) (*Report, error) {
	started := time.Now()
	filtered, rows, err := a.oemRows(t, p)
	if err != nil {
		return nil, err
	}
	r := a.newReport(ReportCompetition, rows, p)

	for _, cv := range comparisonViews {
		metric := cv.metric
		name := cv.name
		var single bool
		a.run(ctx, r, name, func() (*Table, error) {
			cmp, err := CompareSellers(filtered, p.OEM, metric, p.CompareTopN)
			if err != nil {
				return nil, err
			}
			single = cmp.Single
			return a.markSeller(cmp.Table, p.Seller), nil
		})
		r.Views[len(r.Views)-1].Single = single
	}
	a.run(ctx, r, "competitor_summary", func() (*Table, error) {
		summary, err := CompetitorSummary(filtered, p.OEM)
		if err != nil {
			return nil, err
		}
		return a.markSeller(summary, p.Seller), nil
	})
	a.tagViews(ctx, r, rows, p)

	a.finish(ctx, r, started)
	return r, nil
}

// Compare ranks the sellers of one OEM by a single metric.
func (a *Analyzer) Compare(ctx context.Context, t *Table, p Params, metric string) (*Comparison, error) {
	filtered, _, err := a.oemRows(t, p)
	if err != nil {
		return nil, err
	}
	cmp, err := CompareSellers(filtered, p.OEM, metric, p.CompareTopN)
	if err != nil {
		return nil, err
	}
	cmp.Table = a.markSeller(cmp.Table, p.Seller)
	a.logger.InfoContext(ctx, "sellers compared",
		slog.String("oem", p.OEM),
		slog.String("metric", metric),
		slog.Int("sellers", cmp.Sellers),
		slog.Bool("single", cmp.Single))
	return cmp, nil
}

// Tags computes the tag and shipping breakdowns for one OEM.
func (a *Analyzer) Tags(ctx context.Context, t *Table, p Params) (*Report, error) {
	started := time.Now()
	_, rows, err := a.oemRows(t, p)
	if err != nil {
		return nil, err
	}
	r := a.newReport(ReportTags, rows, p)
	a.tagViews(ctx, r, rows, p)
	a.finish(ctx, r, started)
	return r, nil
}

func (a *Analyzer) oemRows(t *Table, p Params) (*Table, *Table, error) {
	if p.OEM == "" {
		return nil, nil, fmt.Errorf("competition report: oem: %w", ErrInvalidParameter)
	}
	filtered, err := a.Filter(t, p)
	if err != nil {
		return nil, nil, err
	}
	rows, err := FilterEquals(filtered, ColOEM, String(p.OEM))
	if err != nil {
		return nil, nil, withOperation(err, "competition report")
	}
	if rows.Len() == 0 {
		return nil, nil, emptyResult("oem " + p.OEM)
	}
	return filtered, rows, nil
}

func (a *Analyzer) tagViews(ctx context.Context, r *Report, rows *Table, p Params) {
	tagged, tagErr := a.cfg.Tags.DeriveTagColumns(rows)
	a.run(ctx, r, "installment_tiers", func() (*Table, error) {
		if tagErr != nil {
			return nil, tagErr
		}
		return TagBreakdown(tagged, p.OEM, ColInstallmentTier)
	})
	a.run(ctx, r, "catalog_status", func() (*Table, error) {
		if tagErr != nil {
			return nil, tagErr
		}
		return TagBreakdown(tagged, p.OEM, ColCatalogStatus)
	})
	a.run(ctx, r, "free_shipping", func() (*Table, error) {
		shipped, err := DeriveFreeShipping(rows)
		if err != nil {
			return nil, err
		}
		return Aggregate(DropNullKeys(shipped, ColSeller), []string{ColSeller},
			Measure{Field: ColFreeShipping, Reducer: Mean, As: "free_shipping_share"},
			Measure{Reducer: Count, As: ColListingCount},
		)
	})
}

func (a *Analyzer) markSeller(t *Table, seller string) *Table {
	if seller == "" || t == nil {
		return t
	}
	return MarkSelected(t, seller)
}

// sideBySide lays views out next to each other, padding shorter ones with
// nulls. Columns are prefixed with the view name.
func sideBySide(views []View) *Table {
	var cols []Column
	height := 0
	for _, v := range views {
		for _, c := range v.Table.columns {
			c.Name = v.Name + "." + c.Name
			cols = append(cols, c)
		}
		height = max(height, v.Table.Len())
	}
	out := newTableFrom(cols)
	for i := 0; i < height; i++ {
		row := make([]Value, 0, len(cols))
		for _, v := range views {
			for j := range v.Table.columns {
				if i < v.Table.Len() {
					row = append(row, v.Table.rows[i][j])
				} else {
					row = append(row, Null())
				}
			}
		}
		out.rows = append(out.rows, row)
	}
	return out
}
