package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"marketlens/internal/dataprocessing"
	"marketlens/internal/exporter"
	"marketlens/internal/infrastructure"
	"marketlens/internal/validation"
	"marketlens/pkg/contracts/domain"
)

// session is the table currently under analysis. It is replaced wholesale;
// the tables it points to are never modified.
type session struct {
	info    domain.SessionInfo
	primary *dataprocessing.Table
	table   *dataprocessing.Table
}

// AnalysisServiceConfig holds the service tunables.
type AnalysisServiceConfig struct {
	// CompareTopN is the number of sellers a comparison shows when the
	// request names none; zero leaves the choice to the comparator.
	CompareTopN int
	Export      exporter.Options
}

// AnalysisService holds the session table and runs the analyses over it.
type AnalysisService struct {
	analyzer *dataprocessing.Analyzer
	files    *validation.FileValidator
	metrics  *infrastructure.AnalyticsMetrics
	cfg      AnalysisServiceConfig
	logger   *slog.Logger

	mu      sync.RWMutex
	current *session
	version int
}

// NewAnalysisService creates the service. metrics may be nil.
func NewAnalysisService(analyzer *dataprocessing.Analyzer, files *validation.FileValidator, metrics *infrastructure.AnalyticsMetrics, cfg AnalysisServiceConfig, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if analyzer == nil {
		analyzer = dataprocessing.NewAnalyzer(logger, dataprocessing.DefaultAnalyzerConfig())
	}
	if files == nil {
		files = validation.NewFileValidator(logger, dataprocessing.DefaultMaxFileSize, nil)
	}
	if cfg.Export == (exporter.Options{}) {
		cfg.Export = exporter.DefaultOptions()
	}
	return &AnalysisService{
		analyzer: analyzer,
		files:    files,
		metrics:  metrics,
		cfg:      cfg,
		logger:   infrastructure.WithComponent(logger, "analysis_service"),
	}
}

// upload is a parsed and normalized listings file.
type upload struct {
	table        *dataprocessing.Table
	summary      domain.FileSummary
	listingIDNum bool
}

// readUpload validates, parses and normalizes one listings file.
func (s *AnalysisService) readUpload(ctx context.Context, kind domain.FileKind, name string, r io.Reader, size int64) (upload, error) {
	summary := domain.FileSummary{Name: filepath.Base(name), Kind: kind, Bytes: size}
	if err := s.files.ValidateUpload(name, size); err != nil {
		return upload{summary: summary}, err
	}

	started := time.Now()
	raw, err := dataprocessing.ReadNamed(name, r, s.files.MaxBytes())
	if err != nil {
		s.logger.WarnContext(ctx, "listings file rejected",
			slog.String("file", summary.Name),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return upload{summary: summary}, fmt.Errorf("read %s: %w", summary.Name, err)
	}

	table, stats := dataprocessing.Normalize(raw)
	if table.Len() == 0 {
		return upload{summary: summary}, fmt.Errorf("%s: %w", summary.Name, ErrEmptyFile)
	}

	summary.Rows = table.Len()
	summary.Renamed = stats.Renamed
	summary.NullDates = stats.NullDates
	summary.NullNumbers = stats.NullNumbers
	summary.BadTags = stats.BadTags
	summary.LoadedAt = time.Now()

	s.metrics.RecordUpload(ctx, string(kind), size, summary.Rows, summary.Fallbacks())
	s.logger.InfoContext(ctx, "listings file loaded",
		slog.String("file", summary.Name),
		slog.String("kind", string(kind)),
		slog.Int64("bytes", size),
		slog.Int("rows", summary.Rows),
		slog.Int("columns", len(table.Columns())),
		slog.Int("coercion_fallbacks", summary.Fallbacks()),
		slog.Duration("duration", time.Since(started)))
	return upload{table: table, summary: summary, listingIDNum: stats.ListingIDNum}, nil
}

// LoadPrimary replaces the session with the listings in r. On failure the
// previous session is kept.
func (s *AnalysisService) LoadPrimary(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error) {
	up, err := s.readUpload(ctx, domain.FileKindPrimary, name, r, size)
	if err != nil {
		return up.summary, domain.SessionInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	next := &session{primary: up.table, table: up.table}
	next.info = domain.SessionInfo{
		ID:           uuid.New().String(),
		Version:      s.version,
		ListingIDNum: up.listingIDNum,
		Files:        []domain.FileSummary{up.summary},
	}
	next.describe(up.table)
	s.current = next
	return up.summary, next.snapshot(), nil
}

// AppendCompetitors stacks a competitor file under the primary table. A
// later competitor file replaces the earlier one, so the session is always
// primary plus at most one competitor file.
func (s *AnalysisService) AppendCompetitors(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error) {
	if _, err := s.snapshot(); err != nil {
		return domain.FileSummary{Name: filepath.Base(name), Kind: domain.FileKindCompetitors}, domain.SessionInfo{}, err
	}
	up, err := s.readUpload(ctx, domain.FileKindCompetitors, name, r, size)
	summary := up.summary
	if err != nil {
		return summary, domain.SessionInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The session may have been reset or replaced while the file was parsed.
	if s.current == nil {
		return summary, domain.SessionInfo{}, ErrNoSession
	}

	combined, stats, err := dataprocessing.AppendCompetitors(s.current.primary, up.table)
	if err != nil {
		return summary, domain.SessionInfo{}, err
	}
	summary.AddedColumns = stats.AddedColumns

	s.version++
	next := &session{primary: s.current.primary, table: combined, info: s.current.info}
	next.info.Version = s.version
	next.info.Files = []domain.FileSummary{s.current.info.Files[0], summary}
	next.info.ListingIDNum = stats.ListingIDNum
	next.describe(combined)
	s.current = next

	s.logger.InfoContext(ctx, "competitor file appended",
		slog.String("file", summary.Name),
		slog.Int("primary_rows", stats.PrimaryRows),
		slog.Int("competitor_rows", stats.CompetitorRows),
		slog.Any("added_columns", stats.AddedColumns),
		slog.Bool("listing_id_numeric", stats.ListingIDNum))
	return summary, next.snapshot(), nil
}

func (ss *session) describe(t *dataprocessing.Table) {
	ss.info.Rows = t.Len()
	ss.info.Columns = t.Columns()
	ss.info.Start, ss.info.End = nil, nil
	if bounds, ok := dataprocessing.DateBounds(t); ok {
		ss.info.Start, ss.info.End = &bounds.Start, &bounds.End
	}
	ss.info.UpdatedAt = time.Now()
}

func (ss *session) snapshot() domain.SessionInfo {
	info := ss.info
	info.Files = append([]domain.FileSummary(nil), ss.info.Files...)
	info.Columns = append([]string(nil), ss.info.Columns...)
	return info
}

// snapshot returns the current table. The table is immutable, so it is
// safe to use after the lock is released.
func (s *AnalysisService) snapshot() (*dataprocessing.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSession
	}
	return s.current.table, nil
}

// Info describes the session.
func (s *AnalysisService) Info(ctx context.Context) (domain.SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.SessionInfo{}, ErrNoSession
	}
	return s.current.snapshot(), nil
}

// HasSession reports whether a listings file is loaded and its row count.
func (s *AnalysisService) HasSession() (bool, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return false, 0
	}
	return true, s.current.table.Len()
}

// Reset drops the session.
func (s *AnalysisService) Reset(ctx context.Context) {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()
	if had {
		s.logger.InfoContext(ctx, "session cleared")
	}
}

// Options lists the sellers and OEMs inside the date range of p.
func (s *AnalysisService) Options(ctx context.Context, p dataprocessing.Params) (domain.PickLists, error) {
	t, err := s.snapshot()
	if err != nil {
		return domain.PickLists{}, err
	}
	filtered, err := s.analyzer.Filter(t, p)
	if err != nil {
		return domain.PickLists{}, err
	}
	sellers, err := dataprocessing.DistinctValues(filtered, dataprocessing.ColSeller)
	if err != nil {
		return domain.PickLists{}, err
	}
	oems, err := dataprocessing.DistinctValues(filtered, dataprocessing.ColOEM)
	if err != nil {
		return domain.PickLists{}, err
	}
	return domain.PickLists{Sellers: sellers, OEMs: oems}, nil
}

// Report computes the report of the given kind.
func (s *AnalysisService) Report(ctx context.Context, kind string, p dataprocessing.Params) (report *dataprocessing.Report, err error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "report."+kind)
	defer func() {
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		span.End()
	}()
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"report.kind":  kind,
		"report.top_n": p.TopN,
		"report.oem":   p.OEM,
	})

	t, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if p.CompareTopN <= 0 {
		p.CompareTopN = s.cfg.CompareTopN
	}

	var compute func(context.Context, *dataprocessing.Table, dataprocessing.Params) (*dataprocessing.Report, error)
	switch kind {
	case dataprocessing.ReportMarket:
		compute = s.analyzer.Market
	case dataprocessing.ReportSeller:
		compute = s.analyzer.Seller
	case dataprocessing.ReportCompetition:
		compute = s.analyzer.Competition
	case dataprocessing.ReportTags:
		compute = s.analyzer.Tags
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownReport)
	}

	started := time.Now()
	report, err = compute(ctx, t, p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failed []string
	for _, v := range report.Failed() {
		failed = append(failed, v.Name)
	}
	s.metrics.RecordReport(ctx, kind, time.Since(started), failed)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{"report.failed_views": len(failed)})
	return report, nil
}

// Market computes the market-wide rankings.
func (s *AnalysisService) Market(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return s.Report(ctx, dataprocessing.ReportMarket, p)
}

// Seller computes the strategy views of p.Seller.
func (s *AnalysisService) Seller(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return s.Report(ctx, dataprocessing.ReportSeller, p)
}

// Competition compares the sellers of p.OEM. After a competitor file has
// been appended this is the future strategy view.
func (s *AnalysisService) Competition(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return s.Report(ctx, dataprocessing.ReportCompetition, p)
}

// Tags computes the tag and shipping breakdowns of p.OEM.
func (s *AnalysisService) Tags(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return s.Report(ctx, dataprocessing.ReportTags, p)
}

// Compare ranks the sellers of p.OEM by one metric.
func (s *AnalysisService) Compare(ctx context.Context, p dataprocessing.Params, metric string) (*dataprocessing.Comparison, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "compare")
	defer span.End()
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{"compare.metric": metric, "compare.oem": p.OEM})

	t, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if p.CompareTopN <= 0 {
		p.CompareTopN = s.cfg.CompareTopN
	}
	return s.analyzer.Compare(ctx, t, p, metric)
}
