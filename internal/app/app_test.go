package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockapp/stockapp/internal/catalog"
	"github.com/stockapp/stockapp/internal/observability"
	"github.com/stockapp/stockapp/internal/reports"
	reportshttp "github.com/stockapp/stockapp/internal/reports/http"
	_ "github.com/stockapp/stockapp/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "BRL", cfg.ReportCurrency)
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	assert.Zero(t, cfg.ReportHistoryLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REPORT_HISTORY_LIMIT", "50")
	t.Setenv("REPORT_CURRENCY", "USD")
	t.Setenv("CATALOG_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 50, cfg.ReportHistoryLimit)
	assert.Equal(t, "USD", cfg.ReportCurrency)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"REPORT_HISTORY_LIMIT": "-1",
		"REPORT_CURRENCY":      "XXXX",
		"CATALOG_TIMEOUT":      "0s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger(buf, &Config{LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestRuntimeTestMode(t *testing.T) {
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

type emptyCatalog struct{}

func (emptyCatalog) Products(context.Context) ([]catalog.ProductSnapshot, error) { return nil, nil }

func (emptyCatalog) Categories(context.Context) ([]catalog.CategorySnapshot, error) { return nil, nil }

func newTestRouter(checks ...ReadinessCheck) http.Handler {
	metrics := observability.NewMetrics()
	service := reports.NewService(emptyCatalog{}, nil, reports.WithRecorder(metrics))
	return NewRouter(RouterParams{
		Config:        &Config{AppRequestTimeout: time.Second},
		ReportHandler: reportshttp.NewHandler(nil, service, nil),
		Metrics:       metrics,
		Readiness:     checks,
	})
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestRouterMountsReportsAndMetrics(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, reportshttp.BasePath+"/generate", strings.NewReader(`{"report_type":"inventory"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `stockapp_reports_generated_total`)
}

func TestRouterReadiness(t *testing.T) {
	router := newTestRouter(
		ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
		ReadinessCheck{Name: "gotenberg", Check: func(context.Context) error { return errors.New("down") }},
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"postgres":"ok","gotenberg":"down"}`, rr.Body.String())
}
