package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an error with a fixed HTTP status and a stable code clients
// can switch on. ErrorHandler turns it into a problem response.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render lets an APIError be passed to render.Render directly.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New returns an APIError without details.
func New(statusCode int, errorCode, message string) *APIError {
	return NewWithDetails(statusCode, errorCode, message, nil)
}

// NewWithDetails returns an APIError carrying details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrMalformedFile  = New(http.StatusBadRequest, "MALFORMED_FILE", "File could not be read as a listings export")

	ErrNoSession = New(http.StatusNotFound, "NO_SESSION", "No listings file has been loaded")
	ErrNoData    = New(http.StatusNotFound, "NO_DATA", "No data for the selected filters")

	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File exceeds the upload limit")
	ErrSchemaMismatch  = New(http.StatusUnprocessableEntity, "SCHEMA_MISMATCH", "Required columns are missing")
)

// ValidationError names one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload for several rejected fields.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ErrValidation rejects a single field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NewValidationErrors rejects several fields at once.
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationErrors{Errors: errs})
}

// InvalidRequestWithError reports a request that could not be decoded.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, ErrInvalidRequest.ErrorCode, ErrInvalidRequest.Message, err.Error())
}

// NotFoundError reports a missing resource such as a report view.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", resource+" not found", resource)
}

// SchemaMismatchError lists the columns an operation could not find.
func SchemaMismatchError(operation string, missing []string) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, ErrSchemaMismatch.ErrorCode,
		fmt.Sprintf("%s requires columns that are missing", operation),
		map[string]interface{}{"operation": operation, "missing": missing})
}
