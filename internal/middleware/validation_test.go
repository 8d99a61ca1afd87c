package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "marketlens/internal/errors"
	"marketlens/internal/shared/testutil"
)

type rangeQuery struct {
	Start string `query:"start" validate:"omitempty,date"`
	TopN  int    `query:"top_n" validate:"omitempty,min=1,max=50"`
	File  string `json:"file" validate:"omitempty,filename"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name       string
		in         rangeQuery
		wantFields []string
	}{
		{name: "empty is valid", in: rangeQuery{}},
		{name: "date only", in: rangeQuery{Start: "2024-03-01", TopN: 10}},
		{name: "rfc3339", in: rangeQuery{Start: "2024-03-01T10:00:00Z"}},
		{name: "bad date", in: rangeQuery{Start: "March"}, wantFields: []string{"start"}},
		{name: "top_n out of range", in: rangeQuery{TopN: 51}, wantFields: []string{"top_n"}},
		{name: "path traversal", in: rangeQuery{File: "../etc/passwd"}, wantFields: []string{"file"}},
		{name: "several", in: rangeQuery{Start: "x", TopN: 99}, wantFields: []string{"start", "top_n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.in)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			var fields []string
			for _, fe := range details.Errors {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	eh := apierrors.NewErrorHandler(logger, false)
	h := ContentTypeValidator(eh, "multipart/form-data")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"get passes", http.MethodGet, "", http.StatusAccepted},
		{"multipart with boundary", http.MethodPost, "multipart/form-data; boundary=xyz", http.StatusAccepted},
		{"missing", http.MethodPost, "", http.StatusBadRequest},
		{"json rejected", http.MethodPost, "application/json", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/session/upload", strings.NewReader("x"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	var readErr error
	h := BodyLimit(apierrors.NewErrorHandler(logger, false), 8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	t.Run("declared length over limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "PAYLOAD_TOO_LARGE", body["error_code"])
		assert.Equal(t, apierrors.TypePayloadTooLarge, body["type"])
	})

	t.Run("streamed body over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
		req.ContentLength = -1
		h.ServeHTTP(httptest.NewRecorder(), req)

		var maxErr *http.MaxBytesError
		assert.ErrorAs(t, readErr, &maxErr)
	})
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	qv := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	tests := []struct {
		name   string
		query  string
		wantN  int
		wantOK bool
	}{
		{"default", "", 20, true},
		{"valid", "top_n=5", 5, true},
		{"not a number", "top_n=five", 0, false},
		{"too large", "top_n=51", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			n, ok := qv.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil), "top_n", 1, 50, 20)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantN, n)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	metric, ok := qv.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?metric=visits", nil),
		"metric", []string{"price", "visits"}, "price")
	assert.True(t, ok)
	assert.Equal(t, "visits", metric)

	rec = httptest.NewRecorder()
	_, ok = qv.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?metric=rating", nil),
		"metric", []string{"price", "visits"}, "price")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
