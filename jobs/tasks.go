package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/stockapp/stockapp/internal/reports"
)

const (
	// QueueCatalog carries cache maintenance tasks.
	QueueCatalog = "catalog"
	// QueueReports carries scheduled report generation. Only processes that
	// own a report history should consume it.
	QueueReports = "reports"

	// TaskCatalogWarmup reloads the catalog snapshot cache.
	TaskCatalogWarmup = "catalog:warmup"
	// TaskReportsGenerate generates one or more reports into the history.
	TaskReportsGenerate = "reports:generate"
)

// CatalogWarmupPayload controls a catalog warm-up run.
type CatalogWarmupPayload struct {
	Invalidate bool `json:"invalidate"`
}

// NewCatalogWarmupTask constructs the warm-up task.
func NewCatalogWarmupTask(invalidate bool) (*asynq.Task, error) {
	data, err := json.Marshal(CatalogWarmupPayload{Invalidate: invalidate})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data, asynq.Queue(QueueCatalog)), nil
}

// ReportGeneratePayload lists the report types to generate. An empty list
// means every available type.
type ReportGeneratePayload struct {
	ReportTypes []string `json:"report_types"`
}

// NewReportGenerateTask constructs a report generation task.
func NewReportGenerateTask(reportTypes ...string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportGeneratePayload{ReportTypes: reportTypes})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsGenerate, data, asynq.Queue(QueueReports)), nil
}

// ParseReportSchedule splits a comma separated type list such as
// "Sales, Inventory". Blank entries are dropped.
func ParseReportSchedule(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, string(reports.ParseReportType(part)))
	}
	return out
}
