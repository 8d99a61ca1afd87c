package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
		code   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrMalformedFile, http.StatusBadRequest, "MALFORMED_FILE"},
		{ErrNoSession, http.StatusNotFound, "NO_SESSION"},
		{ErrNoData, http.StatusNotFound, "NO_DATA"},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{ErrSchemaMismatch, http.StatusUnprocessableEntity, "SCHEMA_MISMATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("top_n", "must be between 1 and 50")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, ValidationError{Field: "top_n", Message: "must be between 1 and 50"}, err.Details)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{{Field: "start", Message: "invalid date"}, {Field: "end", Message: "invalid date"}})

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}
