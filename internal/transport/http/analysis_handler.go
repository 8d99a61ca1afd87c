package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"marketlens/internal/dataprocessing"
	apierrors "marketlens/internal/errors"
	"marketlens/internal/infrastructure"
	"marketlens/internal/middleware"
	api "marketlens/pkg/contracts/api/v1"
)

// AnalysisHandler serves the reports computed over the session.
type AnalysisHandler struct {
	requestBinder
	service AnalysisServiceInterface
}

// NewAnalysisHandler creates an analysis handler. Requests for more than
// maxTopN rows are rejected.
func NewAnalysisHandler(service AnalysisServiceInterface, maxTopN int, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	logger = infrastructure.WithComponent(logger, "analysis_handler")
	return &AnalysisHandler{
		requestBinder: newRequestBinder(logger, errorHandler, maxTopN),
		service:       service,
	}
}

// Routes returns the analysis routes.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/market", h.report(h.service.Market))
	r.Get("/sellers/{seller}", h.report(h.service.Seller))
	r.Route("/oems/{oem}", func(r chi.Router) {
		r.Get("/competition", h.report(h.service.Competition))
		r.Get("/compare", h.Compare)
		r.Get("/tags", h.report(h.service.Tags))
	})
	return r
}

type reportFunc func(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error)

// report adapts a report computation to a handler. Views that failed are
// part of the response body; only request-level failures are problems.
func (h *AnalysisHandler) report(compute reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.bindParams(w, r)
		if !ok {
			return
		}

		h.logger.DebugContext(r.Context(), "computing report",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("seller", p.Seller),
			slog.String("oem", p.OEM),
			slog.Int("top_n", p.TopN))

		report, err := compute(r.Context(), p)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		render.JSON(w, r, report)
	}
}

// Compare handles GET /api/analysis/oems/{oem}/compare?metric=
func (h *AnalysisHandler) Compare(w http.ResponseWriter, r *http.Request) {
	q, ok := h.bindQuery(w, r)
	if !ok {
		return
	}
	metric, ok := h.query.ValidateEnum(w, r, "metric", dataprocessing.ComparisonMetrics(), "")
	if !ok {
		return
	}
	cq := api.CompareQuery{AnalysisQuery: q, Metric: metric}
	if err := h.validator.ValidateStruct(cq); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	cmp, err := h.service.Compare(r.Context(), toParams(q), cq.Metric)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, cmp)
}
