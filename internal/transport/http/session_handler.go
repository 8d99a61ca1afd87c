package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "marketlens/internal/errors"
	"marketlens/internal/infrastructure"
	"marketlens/internal/middleware"
	api "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
)

// multipartOverhead is the room left for multipart framing above the file
// size limit.
const multipartOverhead = 1 << 20

// SessionHandler handles listings uploads and the session they build.
type SessionHandler struct {
	requestBinder
	service        AnalysisServiceInterface
	maxUploadBytes int64
}

// NewSessionHandler creates a session handler. maxUploadBytes bounds the
// request body of uploads; zero disables the bound.
func NewSessionHandler(service AnalysisServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	logger = infrastructure.WithComponent(logger, "session_handler")
	return &SessionHandler{
		requestBinder:  newRequestBinder(logger, errorHandler, 0),
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the session routes.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSession)
	r.Delete("/", h.DeleteSession)
	r.Get("/options", h.GetOptions)

	r.Group(func(r chi.Router) {
		if h.maxUploadBytes > 0 {
			r.Use(middleware.BodyLimit(h.errorHandler, h.maxUploadBytes+multipartOverhead))
		}
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Post("/upload", h.UploadPrimary)
		r.Post("/competitors", h.UploadCompetitors)
	})
	return r
}

type loadFunc func(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error)

// UploadPrimary handles POST /api/session/upload. The file replaces the
// session.
func (h *SessionHandler) UploadPrimary(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, domain.FileKindPrimary, h.service.LoadPrimary)
}

// UploadCompetitors handles POST /api/session/competitors. The file is
// appended under the primary listings.
func (h *SessionHandler) UploadCompetitors(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, domain.FileKindCompetitors, h.service.AppendCompetitors)
}

func (h *SessionHandler) upload(w http.ResponseWriter, r *http.Request, kind domain.FileKind, load loadFunc) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.handleError(w, r, maxErr)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "listings upload received",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("kind", string(kind)),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size))

	summary, info, err := load(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		h.logger.WarnContext(r.Context(), "listings upload failed",
			slog.String("kind", string(kind)),
			slog.String("file", header.Filename),
			slog.String("error", err.Error()))
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, api.UploadResponse{File: summary, Session: info})
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// DeleteSession handles DELETE /api/session
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.service.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetOptions handles GET /api/session/options. Only the date range of the
// query applies.
func (h *SessionHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.bindParams(w, r)
	if !ok {
		return
	}
	picks, err := h.service.Options(r.Context(), p)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, picks)
}
