package http

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "marketlens/internal/errors"
	"marketlens/internal/exporter"
	"marketlens/internal/infrastructure"
	api "marketlens/pkg/contracts/api/v1"
)

// ExportHandler serves reports as CSV and XLSX downloads.
type ExportHandler struct {
	requestBinder
	service AnalysisServiceInterface
}

// NewExportHandler creates an export handler.
func NewExportHandler(service AnalysisServiceInterface, maxTopN int, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	logger = infrastructure.WithComponent(logger, "export_handler")
	return &ExportHandler{
		requestBinder: newRequestBinder(logger, errorHandler, maxTopN),
		service:       service,
	}
}

// Routes returns the export routes. A workbook holds every view of a
// report unless a view is named; a CSV file always holds one view.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{report}.xlsx", h.download(exporter.FormatXLSX))
	r.Get("/{report}/{view}.xlsx", h.download(exporter.FormatXLSX))
	r.Get("/{report}/{view}.csv", h.download(exporter.FormatCSV))
	return r
}

func (h *ExportHandler) download(format exporter.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := h.bindQuery(w, r)
		if !ok {
			return
		}
		eq := api.ExportQuery{
			AnalysisQuery: q,
			Report:        pathParam(r, "report"),
			View:          pathParam(r, "view"),
			Format:        string(format),
		}
		if err := h.validator.ValidateStruct(eq); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		out, err := h.service.Export(r.Context(), eq.Report, eq.View, format, toParams(q))
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", out.ContentType())
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(out.Data); err != nil {
			h.logger.WarnContext(r.Context(), "export download interrupted",
				slog.String("file", out.Filename),
				slog.String("error", err.Error()))
		}
	}
}
