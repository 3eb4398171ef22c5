package reportshttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockapp/stockapp/internal/catalog"
	"github.com/stockapp/stockapp/internal/platform/httpx"
	"github.com/stockapp/stockapp/internal/reports"
)

type stubCatalog struct {
	products   []catalog.ProductSnapshot
	categories []catalog.CategorySnapshot
	err        error
}

func (s *stubCatalog) Products(context.Context) ([]catalog.ProductSnapshot, error) {
	return s.products, s.err
}

func (s *stubCatalog) Categories(context.Context) ([]catalog.CategorySnapshot, error) {
	return s.categories, s.err
}

type stubPDF struct {
	html string
	err  error
}

func (s *stubPDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4\n"), nil
}

type fixture struct {
	router  http.Handler
	service *reports.Service
	history *reports.MemoryHistory
	pdf     *stubPDF
	catalog *stubCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := &stubCatalog{
		products: []catalog.ProductSnapshot{
			{ID: 1, Name: "Keyboard", Price: decimal.NewFromInt(100), Stock: 5, CategoryID: 1},
			{ID: 2, Name: "Mouse", Price: decimal.NewFromInt(50), Stock: 20, CategoryID: 1},
			{ID: 3, Name: "Chair", Price: decimal.NewFromInt(900), Stock: 120, CategoryID: 2},
		},
		categories: []catalog.CategorySnapshot{{ID: 1, Name: "Peripherals"}, {ID: 2, Name: "Furniture"}},
	}
	history := reports.NewMemoryHistory(0)
	service := reports.NewService(cat, history)
	pdf := &stubPDF{}

	handler := NewHandler(nil, service, pdf)
	handler.WithNow(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })
	router := chi.NewRouter()
	handler.MountRoutes(router)

	return &fixture{router: router, service: service, history: history, pdf: pdf, catalog: cat}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeReport(t *testing.T, rr *httptest.ResponseRecorder) reports.Report {
	t.Helper()
	var report reports.Report
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	return report
}

func TestGenerateDispatchesByType(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, BasePath+"/generate", `{"report_type":" inventory "}`)
	require.Equal(t, http.StatusOK, rr.Code)
	report := decodeReport(t, rr)
	assert.Equal(t, reports.TitleInventory, report.Title)
	assert.Len(t, report.Rows, 3)
	assert.Equal(t, 1, f.history.Len())
}

func TestGenerateUnknownTypeFallsBackToDefault(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, BasePath+"/generate", `{"report_type":"weekly"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	report := decodeReport(t, rr)
	assert.Equal(t, reports.TitleDefault, report.Title)
	assert.Equal(t, 2, report.Summary.TotalRecords)
}

func TestGenerateEmptyBodyUsesDefault(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, BasePath+"/generate", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, reports.TitleDefault, decodeReport(t, rr).Title)
}

func TestTypedEndpoints(t *testing.T) {
	cases := map[string]string{
		"/sales":       reports.TitleSales,
		"/inventory":   reports.TitleInventory,
		"/performance": reports.TitlePerformance,
		"/category":    reports.TitleCategory,
	}
	f := newFixture(t)
	for path, title := range cases {
		rr := f.do(t, http.MethodPost, BasePath+path, `{"category_id":1}`)
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, title, decodeReport(t, rr).Title, path)
	}
	assert.Equal(t, len(cases), f.history.Len())
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t)

	bodies := []string{
		`{"report_type":`,
		`{"unknown_field":true}`,
		`{"report_type":"` + strings.Repeat("x", 40) + `"}`,
		`{"start_date":"2025-03-02T00:00:00Z","end_date":"2025-03-01T00:00:00Z"}`,
	}
	for _, body := range bodies {
		rr := f.do(t, http.MethodPost, BasePath+"/generate", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		var problem httpx.ProblemDetail
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
		assert.Equal(t, http.StatusBadRequest, problem.Status)
	}
	assert.Zero(t, f.history.Len())
}

func TestCatalogFailureMapsTo503(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = errors.New("connection refused")

	rr := f.do(t, http.MethodPost, BasePath+"/sales", `{}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
	assert.Zero(t, f.history.Len())
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, BasePath+"/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	f.do(t, http.MethodPost, BasePath+"/sales", `{}`)
	f.do(t, http.MethodPost, BasePath+"/inventory", `{}`)

	rr = f.do(t, http.MethodGet, BasePath+"/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var history []reports.Report
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&history))
	require.Len(t, history, 2)
	assert.Equal(t, reports.TitleInventory, history[0].Title)
	assert.Equal(t, reports.TitleSales, history[1].Title)
}

func TestReportLookup(t *testing.T) {
	f := newFixture(t)
	created := decodeReport(t, f.do(t, http.MethodPost, BasePath+"/performance", `{}`))

	rr := f.do(t, http.MethodGet, BasePath+"/history/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decodeReport(t, rr).ID)

	rr = f.do(t, http.MethodGet, BasePath+"/history/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, BasePath+"/history/00000000-0000-0000-0000-000000000001", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	created := decodeReport(t, f.do(t, http.MethodPost, BasePath+"/inventory", `{}`))

	rr := f.do(t, http.MethodGet, BasePath+"/history/"+created.ID.String()+"/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".csv")

	reader := csv.NewReader(rr.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Key", records[0][0])
	assert.Equal(t, "Keyboard", records[1][0])
}

func TestExportPDF(t *testing.T) {
	f := newFixture(t)
	created := decodeReport(t, f.do(t, http.MethodPost, BasePath+"/category", `{}`))
	path := BasePath + "/history/" + created.ID.String() + "/export.pdf"

	rr := f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))
	assert.Contains(t, f.pdf.html, "Peripherals")

	f.pdf.err = errors.New("gotenberg down")
	rr = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestExportPDFNotConfigured(t *testing.T) {
	service := reports.NewService(&stubCatalog{}, nil)
	report, err := service.GenerateInventoryReport(context.Background(), reports.Parameters{})
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(nil, service, nil).MountRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, BasePath+"/history/"+report.ID.String()+"/export.pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestExportsAreRateLimited(t *testing.T) {
	f := newFixture(t)
	created := decodeReport(t, f.do(t, http.MethodPost, BasePath+"/sales", `{}`))
	path := BasePath + "/history/" + created.ID.String() + "/export.csv"

	var last int
	for i := 0; i < 11; i++ {
		last = f.do(t, http.MethodGet, path, "").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	rr := f.do(t, http.MethodGet, BasePath+"/history", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTypes(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, BasePath+"/types", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["Sales","Inventory","Performance","Category"]`, rr.Body.String())
}

func TestSampleReportIsNotRecorded(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, BasePath+"/test", "")
	require.Equal(t, http.StatusOK, rr.Code)
	report := decodeReport(t, rr)
	assert.Equal(t, "Test", report.ReportType)
	assert.Equal(t, 2, report.Summary.TotalRecords)
	assert.Equal(t, "10000", report.Summary.TotalValue.String())
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), report.GeneratedAt)
	assert.Zero(t, f.history.Len())
}
