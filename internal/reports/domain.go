// Package reports implements the custom reporting engine: it derives sales,
// inventory, performance and category reports from a catalog snapshot and
// keeps a history of everything it generated.
package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrReportNotFound is returned when a report id is absent from history.
var ErrReportNotFound = errors.New("reports: report not found")

// ReportType selects the aggregation strategy.
type ReportType string

const (
	ReportTypeSales       ReportType = "Sales"
	ReportTypeInventory   ReportType = "Inventory"
	ReportTypePerformance ReportType = "Performance"
	ReportTypeCategory    ReportType = "Category"
	ReportTypeDefault     ReportType = "Default"
)

// ParseReportType resolves a caller-supplied type name case-insensitively.
// Empty or unrecognised names resolve to ReportTypeDefault.
func ParseReportType(raw string) ReportType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sales":
		return ReportTypeSales
	case "inventory":
		return ReportTypeInventory
	case "performance":
		return ReportTypePerformance
	case "category":
		return ReportTypeCategory
	default:
		return ReportTypeDefault
	}
}

// AvailableReportTypes lists the named strategies a caller can request.
func AvailableReportTypes() []string {
	return []string{
		string(ReportTypeSales),
		string(ReportTypeInventory),
		string(ReportTypePerformance),
		string(ReportTypeCategory),
	}
}

// Report titles.
const (
	TitleSales       = "Sales Report"
	TitleInventory   = "Inventory Report"
	TitlePerformance = "Product Performance Report"
	TitleCategory    = "Category Report"
	TitleDefault     = "Custom Report"
)

// Row categories.
const (
	CategorySales               = "Sales"
	CategoryLowStock            = "Low Stock"
	CategoryNormalStock         = "Normal Stock"
	CategoryHighPerformance     = "High Performance"
	CategoryMediumPerformance   = "Medium Performance"
	CategoryLowPerformance      = "Low Performance"
	CategoryCriticalPerformance = "Critical Performance"
	CategoryGroup               = "Category"
	UnknownCategoryName         = "Unknown Category"
)

// Summary metric keys.
const (
	MetricTotalOrders          = "TotalOrders"
	MetricAverageOrderValue    = "AverageOrderValue"
	MetricLowStockItems        = "LowStockItems"
	MetricAverageStockValue    = "AverageStockValue"
	MetricAverageScore         = "AverageScore"
	MetricTopPerformers        = "TopPerformers"
	MetricTotalCategories      = "TotalCategories"
	MetricAverageCategoryValue = "AverageCategoryValue"
)

// Default report row keys.
const (
	KeyTotalProducts   = "TotalProducts"
	KeyTotalStockValue = "TotalStockValue"
)

// LowStockThreshold is the on-hand quantity below which a product counts as
// low stock.
const LowStockThreshold = 10

// DefaultCurrency is the ISO 4217 code stamped on summaries.
const DefaultCurrency = "BRL"

// Parameters is the caller-supplied filter for a report. StartDate, EndDate
// and GroupBy are accepted but not consulted by any strategy yet.
type Parameters struct {
	ReportType     string     `json:"report_type" validate:"omitempty,max=32"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	CategoryID     *int64     `json:"category_id,omitempty"`
	ProductID      *int64     `json:"product_id,omitempty"`
	IncludeDetails bool       `json:"include_details"`
	GroupBy        string     `json:"group_by,omitempty" validate:"omitempty,max=64"`
}

// Row is a single report line.
type Row struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// Summary aggregates a report's rows. Monetary totals and averages are
// decimal.Decimal; counts are int.
type Summary struct {
	TotalRecords      int             `json:"total_records"`
	TotalValue        decimal.Decimal `json:"total_value"`
	Currency          string          `json:"currency"`
	AdditionalMetrics map[string]any  `json:"additional_metrics"`
}

// Report is the immutable result of a generation run.
type Report struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	ReportType  string    `json:"report_type"`
	Rows        []Row     `json:"rows"`
	Summary     Summary   `json:"summary"`
}

// clone returns a deep copy so history readers cannot mutate stored reports.
func (r Report) clone() Report {
	out := r
	if r.Rows != nil {
		out.Rows = make([]Row, len(r.Rows))
		for i, row := range r.Rows {
			if row.Date != nil {
				date := *row.Date
				row.Date = &date
			}
			out.Rows[i] = row
		}
	}
	if r.Summary.AdditionalMetrics != nil {
		out.Summary.AdditionalMetrics = make(map[string]any, len(r.Summary.AdditionalMetrics))
		for k, v := range r.Summary.AdditionalMetrics {
			out.Summary.AdditionalMetrics[k] = v
		}
	}
	return out
}
