package reportshttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockapp/stockapp/internal/catalog"
	"github.com/stockapp/stockapp/internal/platform/httpx"
	"github.com/stockapp/stockapp/internal/reports"
	"github.com/stockapp/stockapp/internal/reports/export"
)

const defaultTimeout = 10 * time.Second

// ReportService is the report engine contract consumed by the handler.
type ReportService interface {
	GenerateReport(ctx context.Context, params reports.Parameters) (reports.Report, error)
	GenerateSalesReport(ctx context.Context, params reports.Parameters) (reports.Report, error)
	GenerateInventoryReport(ctx context.Context, params reports.Parameters) (reports.Report, error)
	GenerateProductPerformanceReport(ctx context.Context, params reports.Parameters) (reports.Report, error)
	GenerateCategoryReport(ctx context.Context, params reports.Parameters) (reports.Report, error)
	History(ctx context.Context) ([]reports.Report, error)
	ReportByID(ctx context.Context, id uuid.UUID) (reports.Report, error)
	AvailableReportTypes() []string
	Currency() string
}

type generateFunc func(ctx context.Context, params reports.Parameters) (reports.Report, error)

// Handler serves the custom reports API.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	pdf       export.HTMLRenderer
	validator *validator.Validate
	csvPool   sync.Pool
	timeout   time.Duration
	now       func() time.Time
}

// NewHandler constructs the reports HTTP handler. pdf may be nil, in which
// case PDF exports answer 503.
func NewHandler(logger *slog.Logger, service ReportService, pdf export.HTMLRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		pdf:       pdf,
		validator: validator.New(),
		timeout:   defaultTimeout,
		now:       time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithTimeout bounds each service call made on behalf of a request.
func (h *Handler) WithTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "generate", h.service.GenerateReport)
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "sales", h.service.GenerateSalesReport)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "inventory", h.service.GenerateInventoryReport)
}

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "performance", h.service.GenerateProductPerformanceReport)
}

func (h *Handler) handleCategory(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "category", h.service.GenerateCategoryReport)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, op string, fn generateFunc) {
	params, err := h.decodeParameters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := fn(ctx, params)
	if err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	history, err := h.service.History(ctx)
	if err != nil {
		h.respondError(w, "history", err)
		return
	}
	if history == nil {
		history = []reports.Report{}
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.lookup(w, r)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteReportCSV(buf, report); err != nil {
		h.respondError(w, "write report csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportFilename(report, "csv")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("stream report csv", slog.Any("error", err))
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf export not configured")
		return
	}
	report, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	pdf, err := export.RenderPDF(ctx, h.pdf, report)
	if err != nil {
		h.logger.Error("render report pdf", slog.String("report_id", report.ID.String()), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportFilename(report, "pdf")))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("stream report pdf", slog.Any("error", err))
	}
}

func (h *Handler) handleTypes(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.AvailableReportTypes())
}

// handleSample returns a fixed smoke-test report. It never touches the
// catalog or the history.
func (h *Handler) handleSample(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, sampleReport(h.now().UTC(), h.service.Currency()))
}

func sampleReport(at time.Time, currency string) reports.Report {
	return reports.Report{
		ID:          uuid.New(),
		Title:       "Test Report",
		GeneratedAt: at,
		ReportType:  "Test",
		Rows: []reports.Row{
			{Key: "TotalSales", Value: "10000", Description: "Simulated total sales"},
			{Key: "TotalOrders", Value: "200", Description: "Simulated total orders"},
		},
		Summary: reports.Summary{
			TotalRecords:      2,
			TotalValue:        decimal.NewFromInt(10000),
			Currency:          currency,
			AdditionalMetrics: map[string]any{"Status": "Test executed successfully"},
		},
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (reports.Report, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: report id must be a uuid", httpx.ErrValidation))
		return reports.Report{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.ReportByID(ctx, id)
	if err != nil {
		h.respondError(w, "lookup report", err)
		return reports.Report{}, false
	}
	return report, true
}

func (h *Handler) decodeParameters(r *http.Request) (reports.Parameters, error) {
	var params reports.Parameters
	if err := httpx.DecodeJSON(r, &params); err != nil {
		return reports.Parameters{}, err
	}
	if err := h.validator.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return reports.Parameters{}, fmt.Errorf("%w: %s failed %s", httpx.ErrValidation, fe.Field(), fe.Tag())
		}
		return reports.Parameters{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if params.StartDate != nil && params.EndDate != nil && params.EndDate.Before(*params.StartDate) {
		return reports.Parameters{}, fmt.Errorf("%w: end_date before start_date", httpx.ErrValidation)
	}
	return params, nil
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reports.ErrReportNotFound):
		httpx.RespondError(w, fmt.Errorf("report: %w", httpx.ErrNotFound))
	case errors.Is(err, catalog.ErrUnavailable):
		h.logger.Warn("catalog unavailable", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("catalog: %w", httpx.ErrUnavailable))
	default:
		h.logger.Error("reports request failed", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func exportFilename(report reports.Report, ext string) string {
	return fmt.Sprintf("report-%s-%s.%s", report.GeneratedAt.UTC().Format("20060102-150405"), report.ID.String()[:8], ext)
}
