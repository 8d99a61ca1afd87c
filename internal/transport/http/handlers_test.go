package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketlens/internal/dataprocessing"
	apierrors "marketlens/internal/errors"
	"marketlens/internal/exporter"
	"marketlens/internal/services"
	"marketlens/internal/shared/testutil"
	api "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
)

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) LoadPrimary(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(name, string(data), size)
	return args.Get(0).(domain.FileSummary), args.Get(1).(domain.SessionInfo), args.Error(2)
}

func (m *MockAnalysisService) AppendCompetitors(ctx context.Context, name string, r io.Reader, size int64) (domain.FileSummary, domain.SessionInfo, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(name, string(data), size)
	return args.Get(0).(domain.FileSummary), args.Get(1).(domain.SessionInfo), args.Error(2)
}

func (m *MockAnalysisService) Info(ctx context.Context) (domain.SessionInfo, error) {
	args := m.Called()
	return args.Get(0).(domain.SessionInfo), args.Error(1)
}

func (m *MockAnalysisService) Reset(ctx context.Context) {
	m.Called()
}

func (m *MockAnalysisService) Options(ctx context.Context, p dataprocessing.Params) (domain.PickLists, error) {
	args := m.Called(p)
	return args.Get(0).(domain.PickLists), args.Error(1)
}

func (m *MockAnalysisService) report(method string, p dataprocessing.Params) (*dataprocessing.Report, error) {
	args := m.MethodCalled(method, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataprocessing.Report), args.Error(1)
}

func (m *MockAnalysisService) Market(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return m.report("Market", p)
}

func (m *MockAnalysisService) Seller(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return m.report("Seller", p)
}

func (m *MockAnalysisService) Competition(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return m.report("Competition", p)
}

func (m *MockAnalysisService) Tags(ctx context.Context, p dataprocessing.Params) (*dataprocessing.Report, error) {
	return m.report("Tags", p)
}

func (m *MockAnalysisService) Compare(ctx context.Context, p dataprocessing.Params, metric string) (*dataprocessing.Comparison, error) {
	args := m.Called(p, metric)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataprocessing.Comparison), args.Error(1)
}

func (m *MockAnalysisService) Export(ctx context.Context, kind, view string, format exporter.Format, p dataprocessing.Params) (*services.Export, error) {
	args := m.Called(kind, view, format, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Export), args.Error(1)
}

func newTestRouter(t *testing.T, svc *MockAnalysisService, maxUpload int64) http.Handler {
	t.Helper()
	return newTestRouterWithMaxTopN(t, svc, maxUpload, 0)
}

func newTestRouterWithMaxTopN(t *testing.T, svc *MockAnalysisService, maxUpload int64, maxTopN int) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	eh := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Mount("/api/session", NewSessionHandler(svc, maxUpload, logger, eh).Routes())
	r.Mount("/api/analysis", NewAnalysisHandler(svc, maxTopN, logger, eh).Routes())
	r.Mount("/api/export", NewExportHandler(svc, maxTopN, logger, eh).Routes())
	return r
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestSessionHandler_Upload(t *testing.T) {
	const csv = "Fecha,Seller2,OEM\n2024-01-10,ACME,1001\n"
	summary := domain.FileSummary{Name: "listings.csv", Kind: domain.FileKindPrimary, Rows: 1}
	info := domain.SessionInfo{ID: "s-1", Version: 1, Rows: 1, Files: []domain.FileSummary{summary}}

	tests := []struct {
		name         string
		path         string
		field        string
		contentType  string
		setupMock    func(*MockAnalysisService)
		wantStatus   int
		wantContains string
	}{
		{
			name:  "primary file",
			path:  "/api/session/upload",
			field: "file",
			setupMock: func(m *MockAnalysisService) {
				m.On("LoadPrimary", "listings.csv", csv, int64(len(csv))).Return(summary, info, nil)
			},
			wantStatus:   http.StatusOK,
			wantContains: `"id":"s-1"`,
		},
		{
			name:  "competitor file without session",
			path:  "/api/session/competitors",
			field: "file",
			setupMock: func(m *MockAnalysisService) {
				m.On("AppendCompetitors", "listings.csv", csv, int64(len(csv))).
					Return(domain.FileSummary{}, domain.SessionInfo{}, services.ErrNoSession)
			},
			wantStatus:   http.StatusNotFound,
			wantContains: `"NO_SESSION"`,
		},
		{
			name:  "malformed file",
			path:  "/api/session/upload",
			field: "file",
			setupMock: func(m *MockAnalysisService) {
				m.On("LoadPrimary", "listings.csv", csv, int64(len(csv))).
					Return(domain.FileSummary{}, domain.SessionInfo{}, fmt.Errorf("read: %w", dataprocessing.ErrMalformedFile))
			},
			wantStatus:   http.StatusBadRequest,
			wantContains: "malformed-file",
		},
		{
			name:  "missing columns",
			path:  "/api/session/competitors",
			field: "file",
			setupMock: func(m *MockAnalysisService) {
				m.On("AppendCompetitors", "listings.csv", csv, int64(len(csv))).
					Return(domain.FileSummary{}, domain.SessionInfo{}, &dataprocessing.SchemaError{Operation: "competitor file", Missing: []string{"oem"}})
			},
			wantStatus:   http.StatusUnprocessableEntity,
			wantContains: `"missing":["oem"]`,
		},
		{
			name:         "wrong field",
			path:         "/api/session/upload",
			field:        "upload",
			setupMock:    func(m *MockAnalysisService) {},
			wantStatus:   http.StatusBadRequest,
			wantContains: "VALIDATION_FAILED",
		},
		{
			name:         "not multipart",
			path:         "/api/session/upload",
			field:        "file",
			contentType:  "application/json",
			setupMock:    func(m *MockAnalysisService) {},
			wantStatus:   http.StatusUnsupportedMediaType,
			wantContains: "UNSUPPORTED_MEDIA_TYPE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			body, ct := multipartBody(t, tt.field, "listings.csv", csv)
			if tt.contentType != "" {
				ct = tt.contentType
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantContains)
			svc.AssertExpectations(t)
		})
	}
}

func TestSessionHandler_UploadTooLarge(t *testing.T) {
	svc := new(MockAnalysisService)
	body, ct := multipartBody(t, "file", "listings.csv", string(make([]byte, multipartOverhead+64)))

	req := httptest.NewRequest(http.MethodPost, "/api/session/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc, 16).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	svc.AssertNotCalled(t, "LoadPrimary", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionHandler_GetAndDelete(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Info").Return(domain.SessionInfo{}, services.ErrNoSession).Once()
	svc.On("Reset").Return().Once()
	router := newTestRouter(t, svc, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_SESSION", decodeBody(t, rec)["error_code"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	svc.AssertExpectations(t)
}

func TestSessionHandler_Options(t *testing.T) {
	svc := new(MockAnalysisService)
	want := dataprocessing.Params{Range: dataprocessing.DateRange{
		Start: day(10),
		End:   day(11).Add(-time.Nanosecond),
	}}
	svc.On("Options", want).Return(domain.PickLists{Sellers: []string{"ACME"}, OEMs: []string{"1001"}}, nil)

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/options?start=2024-01-10&end=2024-01-10", nil))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"sellers":["ACME"],"oems":["1001"]}`, rec.Body.String())
}

func TestAnalysisHandler_Reports(t *testing.T) {
	report := &dataprocessing.Report{Kind: dataprocessing.ReportMarket, Rows: 4}

	tests := []struct {
		name       string
		target     string
		setupMock  func(*MockAnalysisService)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "market with range and top n",
			target: "/api/analysis/market?start=2024-01-10T00:00:00Z&end=2024-01-12&top_n=5",
			setupMock: func(m *MockAnalysisService) {
				m.On("Market", dataprocessing.Params{
					Range: dataprocessing.DateRange{Start: day(10), End: day(13).Add(-time.Nanosecond)},
					TopN:  5,
				}).Return(report, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"kind":"market"`,
		},
		{
			name:   "seller from path",
			target: "/api/analysis/sellers/ACME%20AUTO?compare_top_n=3",
			setupMock: func(m *MockAnalysisService) {
				m.On("Seller", dataprocessing.Params{Seller: "ACME AUTO", CompareTopN: 3}).Return(report, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"rows":4`,
		},
		{
			name:   "competition marks the query seller",
			target: "/api/analysis/oems/1001/competition?seller=ACME",
			setupMock: func(m *MockAnalysisService) {
				m.On("Competition", dataprocessing.Params{OEM: "1001", Seller: "ACME"}).Return(report, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "tags with empty range",
			target: "/api/analysis/oems/1001/tags?start=2030-01-01",
			setupMock: func(m *MockAnalysisService) {
				m.On("Tags", dataprocessing.Params{OEM: "1001", Range: dataprocessing.DateRange{Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}}).
					Return(nil, fmt.Errorf("date range: %w", dataprocessing.ErrEmptyResult))
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "data/empty",
		},
		{
			name:       "top n not a number",
			target:     "/api/analysis/market?top_n=ten",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "top_n must be a valid integer",
		},
		{
			name:       "top n above maximum",
			target:     "/api/analysis/market?top_n=500",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "top_n must be between 1 and 50",
		},
		{
			name:       "bad date",
			target:     "/api/analysis/market?start=yesterday",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"start"`,
		},
		{
			name:   "no session",
			target: "/api/analysis/market",
			setupMock: func(m *MockAnalysisService) {
				m.On("Market", dataprocessing.Params{}).Return(nil, services.ErrNoSession)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "NO_SESSION",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_ConfiguredMaxTopN(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Market", dataprocessing.Params{TopN: 20}).Return(&dataprocessing.Report{Kind: dataprocessing.ReportMarket}, nil)
	router := newTestRouterWithMaxTopN(t, svc, 0, 20)

	tests := []struct {
		target     string
		wantStatus int
	}{
		{"/api/analysis/market?top_n=20", http.StatusOK},
		{"/api/analysis/market?top_n=40", http.StatusBadRequest},
		{"/api/export/market/top_sellers_by_visits.csv?top_n=21", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusBadRequest {
				assert.Contains(t, rec.Body.String(), "top_n must be between 1 and 20")
			}
		})
	}
	svc.AssertNumberOfCalls(t, "Market", 1)
}

func TestAnalysisHandler_Compare(t *testing.T) {
	svc := new(MockAnalysisService)
	cmp := &dataprocessing.Comparison{OEM: "1001", Metric: "price", Sellers: 2, TopN: 2}
	svc.On("Compare", dataprocessing.Params{OEM: "1001"}, "price").Return(cmp, nil)
	router := newTestRouter(t, svc, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/oems/1001/compare?metric=price", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "price", body["metric"])
	assert.Equal(t, float64(2), body["sellers"])

	for _, target := range []string{
		"/api/analysis/oems/1001/compare",
		"/api/analysis/oems/1001/compare?metric=rating",
	} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"metric"`)
	}
	svc.AssertNumberOfCalls(t, "Compare", 1)
}

func TestExportHandler(t *testing.T) {
	csvExport := &services.Export{
		Filename: "market_top_sellers_by_visits.csv",
		Format:   exporter.FormatCSV,
		Data:     []byte("\xEF\xBB\xBFseller,total_visits\nACME,80\n"),
	}
	xlsxExport := &services.Export{Filename: "seller.xlsx", Format: exporter.FormatXLSX, Data: []byte("PK")}

	tests := []struct {
		name        string
		target      string
		setupMock   func(*MockAnalysisService)
		wantStatus  int
		wantType    string
		wantDisp    string
		wantContent string
	}{
		{
			name:   "csv view",
			target: "/api/export/market/top_sellers_by_visits.csv?top_n=3",
			setupMock: func(m *MockAnalysisService) {
				m.On("Export", "market", "top_sellers_by_visits", exporter.FormatCSV, dataprocessing.Params{TopN: 3}).Return(csvExport, nil)
			},
			wantStatus:  http.StatusOK,
			wantType:    "text/csv; charset=utf-8",
			wantDisp:    "attachment; filename=market_top_sellers_by_visits.csv",
			wantContent: "ACME,80",
		},
		{
			name:   "xlsx report",
			target: "/api/export/seller.xlsx?seller=ACME",
			setupMock: func(m *MockAnalysisService) {
				m.On("Export", "seller", "", exporter.FormatXLSX, dataprocessing.Params{Seller: "ACME"}).Return(xlsxExport, nil)
			},
			wantStatus: http.StatusOK,
			wantType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			wantDisp:   "attachment; filename=seller.xlsx",
		},
		{
			name:   "unknown view",
			target: "/api/export/market/nope.csv",
			setupMock: func(m *MockAnalysisService) {
				m.On("Export", "market", "nope", exporter.FormatCSV, dataprocessing.Params{}).
					Return(nil, fmt.Errorf("market/nope: %w", services.ErrViewNotFound))
			},
			wantStatus:  http.StatusNotFound,
			wantContent: "not-found",
		},
		{
			name:        "unknown report",
			target:      "/api/export/forecast.xlsx",
			setupMock:   func(m *MockAnalysisService) {},
			wantStatus:  http.StatusBadRequest,
			wantContent: `"report"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			}
			if tt.wantDisp != "" {
				assert.Equal(t, tt.wantDisp, rec.Header().Get("Content-Disposition"))
			}
			assert.Contains(t, rec.Body.String(), tt.wantContent)
			svc.AssertExpectations(t)
		})
	}
}

func TestToParams(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{name: "open"},
		{name: "date-only end covers the day", end: "2024-01-12", wantEnd: day(13).Add(-time.Nanosecond)},
		{name: "timestamp end kept", end: "2024-01-12T06:00:00Z", wantEnd: day(12).Add(6 * time.Hour)},
		{name: "start", start: "2024-01-10", wantStart: day(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := toParams(api.AnalysisQuery{Start: tt.start, End: tt.end})
			assert.True(t, tt.wantStart.Equal(p.Range.Start), "start %v", p.Range.Start)
			assert.True(t, tt.wantEnd.Equal(p.Range.End), "end %v", p.Range.End)
		})
	}
}
