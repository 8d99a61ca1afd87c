package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"marketlens/internal/dataprocessing"
)

// Problem types (RFC 7807 "type" member)
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeMethod          = "/errors/method-not-allowed"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypePayloadTooLarge = "/errors/payload-too-large"

	TypeNoSession      = "/errors/session/not-loaded"
	TypeNoData         = "/errors/data/empty"
	TypeSchemaMismatch = "/errors/data/schema-mismatch"
	TypeMalformedFile  = "/errors/data/malformed-file"
)

// codeTypes maps APIError codes onto problem types. Unlisted codes are
// internal.
var codeTypes = map[string]string{
	"VALIDATION_FAILED":      TypeValidation,
	"INVALID_REQUEST":        TypeValidation,
	"MISSING_PARAMETER":      TypeValidation,
	"INVALID_PARAMETER":      TypeValidation,
	"MISSING_CONTENT_TYPE":   TypeValidation,
	"UNSUPPORTED_MEDIA_TYPE": TypeValidation,
	"NOT_FOUND":              TypeNotFound,
	"NO_SESSION":             TypeNoSession,
	"NO_DATA":                TypeNoData,
	"SCHEMA_MISMATCH":        TypeSchemaMismatch,
	"MALFORMED_FILE":         TypeMalformedFile,
	"PAYLOAD_TOO_LARGE":      TypePayloadTooLarge,
	"RATE_LIMIT_EXCEEDED":    TypeRateLimit,
	"SERVICE_UNAVAILABLE":    TypeServiceDown,
}

// engineProblem describes how a sentinel of the analytics engine is
// reported. The error text becomes the problem detail.
type engineProblem struct {
	target error
	status int
	typ    string
	title  string
}

var engineProblems = []engineProblem{
	{context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout, "Request Timeout"},
	{context.Canceled, http.StatusGatewayTimeout, TypeTimeout, "Request Timeout"},
	{dataprocessing.ErrEmptyResult, http.StatusNotFound, TypeNoData, "No Data"},
	{dataprocessing.ErrFileTooLarge, http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large"},
	{dataprocessing.ErrMalformedFile, http.StatusBadRequest, TypeMalformedFile, "Malformed File"},
	{dataprocessing.ErrInvalidTopN, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{dataprocessing.ErrInvalidParameter, http.StatusBadRequest, TypeValidation, "Validation Failed"},
}

// ErrorHandler renders errors as RFC 7807 problem responses.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an error handler. includeStack adds stack traces
// to responses and is meant for development only.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes it as a problem response. Client errors
// log at warn level, everything else at error level.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r).WithExtension("trace_id", reqID)

	level := slog.LevelError
	if problem.Status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack {
		problem.WithExtension("stack", string(debug.Stack()))
	}
	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to problem details. Unknown errors are
// reported without their text.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var schemaErr *dataprocessing.SchemaError
	if errors.As(err, &schemaErr) {
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeSchemaMismatch, "Schema Mismatch",
			schemaErr.Error(), r.URL.Path).
			WithExtension("operation", schemaErr.Operation).
			WithExtension("missing", schemaErr.Missing)
	}

	for _, p := range engineProblems {
		if errors.Is(err, p.target) {
			detail := err.Error()
			if p.typ == TypeTimeout {
				detail = "The request took too long to process and was cancelled"
			}
			return NewProblemDetails(p.status, p.typ, p.title, detail, r.URL.Path)
		}
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", r.URL.Path)
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType, ok := codeTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}
	problem := NewProblemDetails(apiErr.StatusCode, problemType, http.StatusText(apiErr.StatusCode),
		apiErr.Message, r.URL.Path).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// Recoverer turns panics in next into 500 problem responses.
// http.ErrAbortHandler is re-raised so the server can abort the response.
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				h.HandlePanic(w, r, rvr)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// HandlePanic logs a recovered panic and writes a 500 problem response.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())
	stack := string(debug.Stack())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path).
		WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", stack)
	}
	render.Render(w, r, problem)
}

// NotFound writes a 404 problem for unrouted paths.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context())))
}

// MethodNotAllowed writes a 405 problem.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeMethod, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context())))
}
