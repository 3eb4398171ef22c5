// Package export renders generated reports to CSV and PDF.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockapp/stockapp/internal/reports"
)

// WriteReportCSV emits the report rows followed by its summary block.
func WriteReportCSV(w io.Writer, report reports.Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Key", "Value", "Description", "Category", "Date"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		date := ""
		if row.Date != nil {
			date = row.Date.UTC().Format(time.RFC3339)
		}
		if err := writer.Write([]string{row.Key, row.Value, row.Description, row.Category, date}); err != nil {
			return err
		}
	}

	if err := writer.Write(nil); err != nil {
		return err
	}
	records := [][]string{
		{"Metric", "Value"},
		{"Title", report.Title},
		{"Report Type", report.ReportType},
		{"Generated At", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total Records", strconv.Itoa(report.Summary.TotalRecords)},
		{"Total Value", formatDecimal(report.Summary.TotalValue)},
		{"Currency", report.Summary.Currency},
	}
	for _, key := range metricKeys(report.Summary.AdditionalMetrics) {
		records = append(records, []string{key, formatMetric(report.Summary.AdditionalMetrics[key])})
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func metricKeys(metrics map[string]any) []string {
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatMetric(v any) string {
	switch val := v.(type) {
	case decimal.Decimal:
		return formatDecimal(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func formatDecimal(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
