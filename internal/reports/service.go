package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stockapp/stockapp/internal/catalog"
)

// Recorder receives generation outcomes for instrumentation.
type Recorder interface {
	ObserveReport(reportType string, rows int, duration time.Duration, err error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder attaches an instrumentation sink.
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithMoney sets the currency used for summaries and formatted values.
func WithMoney(money Money) Option {
	return func(s *Service) {
		if money.printer != nil {
			s.money = money
		}
	}
}

// WithIDGenerator overrides report id generation.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service generates reports from the catalog and records them in history.
type Service struct {
	catalog  catalog.Provider
	history  HistoryStore
	logger   *slog.Logger
	recorder Recorder
	money    Money
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewService wires a catalog provider with a history store.
func NewService(provider catalog.Provider, history HistoryStore, opts ...Option) *Service {
	if history == nil {
		history = NewMemoryHistory(0)
	}
	s := &Service{
		catalog: provider,
		history: history,
		logger:  slog.Default(),
		money:   mustMoney(DefaultCurrency),
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateReport dispatches on params.ReportType. Unknown or empty types
// produce the default summary report.
func (s *Service) GenerateReport(ctx context.Context, params Parameters) (Report, error) {
	params = params.normalize()
	return s.generate(ctx, ParseReportType(params.ReportType), params)
}

// GenerateSalesReport builds the simulated sales report.
func (s *Service) GenerateSalesReport(ctx context.Context, params Parameters) (Report, error) {
	return s.generate(ctx, ReportTypeSales, params.normalize())
}

// GenerateInventoryReport builds the stock valuation report.
func (s *Service) GenerateInventoryReport(ctx context.Context, params Parameters) (Report, error) {
	return s.generate(ctx, ReportTypeInventory, params.normalize())
}

// GenerateProductPerformanceReport builds the performance score report.
func (s *Service) GenerateProductPerformanceReport(ctx context.Context, params Parameters) (Report, error) {
	return s.generate(ctx, ReportTypePerformance, params.normalize())
}

// GenerateCategoryReport builds the per-category report over the full catalog.
func (s *Service) GenerateCategoryReport(ctx context.Context, params Parameters) (Report, error) {
	return s.generate(ctx, ReportTypeCategory, params.normalize())
}

// History returns generated reports, newest first.
func (s *Service) History(ctx context.Context) ([]Report, error) {
	reports, err := s.history.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reports: load history: %w", err)
	}
	return reports, nil
}

// ReportByID looks up a previously generated report.
func (s *Service) ReportByID(ctx context.Context, id uuid.UUID) (Report, error) {
	reports, err := s.History(ctx)
	if err != nil {
		return Report{}, err
	}
	for _, report := range reports {
		if report.ID == id {
			return report, nil
		}
	}
	return Report{}, ErrReportNotFound
}

// AvailableReportTypes lists the named report strategies.
func (s *Service) AvailableReportTypes() []string {
	return AvailableReportTypes()
}

// Currency returns the ISO code stamped on summaries.
func (s *Service) Currency() string {
	return s.money.Code()
}

func (s *Service) generate(ctx context.Context, kind ReportType, params Parameters) (Report, error) {
	started := time.Now()
	generatedAt := s.now()

	var (
		report Report
		err    error
	)
	switch kind {
	case ReportTypeSales:
		report, err = s.buildSales(ctx, params, generatedAt)
	case ReportTypeInventory:
		report, err = s.buildInventory(ctx, params, generatedAt)
	case ReportTypePerformance:
		report, err = s.buildPerformance(ctx, params, generatedAt)
	case ReportTypeCategory:
		report, err = s.buildCategory(ctx, generatedAt)
	default:
		kind = ReportTypeDefault
		report, err = s.buildDefault(ctx, generatedAt)
	}
	if s.recorder != nil {
		s.recorder.ObserveReport(string(kind), len(report.Rows), time.Since(started), err)
	}
	if err != nil {
		s.logger.Error("generate report", slog.String("report_type", string(kind)), slog.Any("error", err))
		return Report{}, err
	}

	if err := s.history.Append(ctx, report); err != nil {
		return Report{}, fmt.Errorf("reports: append history: %w", err)
	}
	s.logger.Debug("report generated",
		slog.String("report_id", report.ID.String()),
		slog.String("report_type", report.ReportType),
		slog.Int("rows", len(report.Rows)),
	)
	return report, nil
}

func (s *Service) newReport(kind ReportType, title string, generatedAt time.Time) Report {
	return Report{
		ID:          s.newID(),
		Title:       title,
		GeneratedAt: generatedAt,
		ReportType:  string(kind),
		Rows:        make([]Row, 0),
		Summary: Summary{
			Currency:          s.money.Code(),
			AdditionalMetrics: map[string]any{},
		},
	}
}

// rowDate gives each row its own timestamp so rows never share a pointer.
func rowDate(t time.Time) *time.Time {
	return &t
}

func (s *Service) products(ctx context.Context) ([]catalog.ProductSnapshot, error) {
	if s.catalog == nil {
		return nil, catalog.Unavailable("list products", errors.New("provider not configured"))
	}
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, catalog.Unavailable("list products", err)
	}
	return products, nil
}

func (s *Service) categories(ctx context.Context) ([]catalog.CategorySnapshot, error) {
	if s.catalog == nil {
		return nil, catalog.Unavailable("list categories", errors.New("provider not configured"))
	}
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		return nil, catalog.Unavailable("list categories", err)
	}
	return categories, nil
}
