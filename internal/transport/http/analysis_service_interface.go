package http

import (
	"context"
	"io"

	"marketlens/internal/dataprocessing"
	"marketlens/internal/exporter"
	"marketlens/internal/services"
	"marketlens/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the session and analysis operations the
// handlers depend on.
type AnalysisServiceInterface interface {
	LoadPrimary(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error)
	AppendCompetitors(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error)
	Info(ctx context.Context) (domain.SessionInfo, error)
	Reset(ctx context.Context)
	Options(ctx context.Context, p dataprocessing.Params) (domain.PickLists, error)

	Market(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error)
	Seller(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error)
	Competition(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error)
	Tags(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error)
	Compare(ctx context.Context, p dataprocessing.Params, metric string) (*dataprocessing.Comparison, error)
	Export(ctx context.Context, kind, view string, format exporter.Format, p dataprocessing.Params) (*services.Export, error)
}

var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
