package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketlens/internal/dataprocessing"
	apierrors "marketlens/internal/errors"
	"marketlens/internal/middleware"
	"marketlens/internal/services"
	api "marketlens/pkg/contracts/api/v1"
)

// requestBinder turns query strings into analysis parameters and service
// errors into problem responses. The handlers embed it.
type requestBinder struct {
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	maxTopN      int
}

// newRequestBinder bounds top_n by maxTopN; zero selects the analyzer default.
func newRequestBinder(logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxTopN int) requestBinder {
	if maxTopN <= 0 {
		maxTopN = dataprocessing.DefaultAnalyzerConfig().MaxTopN
	}
	return requestBinder{
		validator:    middleware.NewValidator(logger),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		errorHandler: errorHandler,
		logger:       logger,
		maxTopN:      maxTopN,
	}
}

// bindQuery reads the shared analysis query. Path parameters take
// precedence over the seller and oem query parameters. On failure the
// problem response has been written and ok is false.
func (b requestBinder) bindQuery(w http.ResponseWriter, r *http.Request) (api.AnalysisQuery, bool) {
	topN, ok := b.query.ValidateInt(w, r, "top_n", 1, b.maxTopN, 0)
	if !ok {
		return api.AnalysisQuery{}, false
	}
	compareTopN, ok := b.query.ValidateInt(w, r, "compare_top_n", 1, math.MaxInt32, 0)
	if !ok {
		return api.AnalysisQuery{}, false
	}

	values := r.URL.Query()
	q := api.AnalysisQuery{
		Start:       strings.TrimSpace(values.Get("start")),
		End:         strings.TrimSpace(values.Get("end")),
		TopN:        topN,
		Seller:      values.Get("seller"),
		OEM:         values.Get("oem"),
		CompareTopN: compareTopN,
	}
	if seller := pathParam(r, "seller"); seller != "" {
		q.Seller = seller
	}
	if oem := pathParam(r, "oem"); oem != "" {
		q.OEM = oem
	}
	return q, true
}

// bindParams reads and validates the analysis query and converts it into
// engine parameters.
func (b requestBinder) bindParams(w http.ResponseWriter, r *http.Request) (dataprocessing.Params, bool) {
	q, ok := b.bindQuery(w, r)
	if !ok {
		return dataprocessing.Params{}, false
	}
	if err := b.validator.ValidateStruct(q); err != nil {
		b.errorHandler.HandleError(w, r, err)
		return dataprocessing.Params{}, false
	}
	return toParams(q), true
}

// toParams converts a validated query. A date-only end covers the whole
// day so that records stamped later that day are kept.
func toParams(q api.AnalysisQuery) dataprocessing.Params {
	// bounds were checked by the date validator
	rng, _ := dataprocessing.ParseRange(q.Start, q.End)
	return dataprocessing.Params{
		Range:       rng,
		TopN:        q.TopN,
		Seller:      q.Seller,
		OEM:         q.OEM,
		CompareTopN: q.CompareTopN,
	}
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// handleError maps service errors onto API errors and writes the problem
// response.
func (b requestBinder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrNoSession):
		err = apierrors.ErrNoSession
	case errors.Is(err, services.ErrViewNotFound), errors.Is(err, services.ErrUnknownReport):
		err = apierrors.NotFoundError(err.Error())
	case errors.Is(err, services.ErrEmptyFile):
		err = apierrors.NewWithDetails(http.StatusBadRequest, apierrors.ErrMalformedFile.ErrorCode,
			apierrors.ErrMalformedFile.Message, err.Error())
	case errors.As(err, &maxErr):
		err = apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, apierrors.ErrPayloadTooLarge.ErrorCode,
			apierrors.ErrPayloadTooLarge.Message, map[string]interface{}{"max_bytes": maxErr.Limit})
	}
	b.errorHandler.HandleError(w, r, err)
}
