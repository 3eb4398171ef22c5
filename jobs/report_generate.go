package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stockapp/stockapp/internal/jobs"
	"github.com/stockapp/stockapp/internal/reports"
)

// ReportGenerator is the slice of the report engine used by scheduled runs.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, params reports.Parameters) (reports.Report, error)
	AvailableReportTypes() []string
}

// ReportGenerateJob generates reports on a schedule so they show up in the
// history of the process that runs it.
//
// Progress is kept per task id. A retried task resumes at the type that
// failed, so types that already landed in history are not generated twice.
// Progress lives in memory like the history it protects.
type ReportGenerateJob struct {
	Reports ReportGenerator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// TaskID identifies a task across retries. Defaults to asynq.GetTaskID.
	TaskID func(ctx context.Context) (string, bool)

	mu       sync.Mutex
	progress map[string]int
}

// NewReportGenerateJob wires dependencies for the generation handler.
func NewReportGenerateJob(generator ReportGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportGenerateJob {
	return &ReportGenerateJob{Reports: generator, Logger: logger, Metrics: metrics}
}

// Handle processes report generation tasks. Generation stops at the first
// failure and the retry picks up from there.
func (j *ReportGenerateJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("report generate: handler not configured")
	}
	var payload ReportGeneratePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	types := payload.ReportTypes
	if len(types) == 0 {
		types = j.Reports.AvailableReportTypes()
	}

	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskReportsGenerate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskReportsGenerate)
	generated := 0
	defer func() {
		metrics.AddProcessed(TaskReportsGenerate, generated)
	}()

	taskID, tracked := j.taskID(ctx)
	start := 0
	if tracked {
		start = j.resumeAt(taskID)
		if start > 0 {
			logger.Info("resuming scheduled reports", slog.String("task_id", taskID), slog.Int("skipped", start))
		}
	}

	for i := start; i < len(types); i++ {
		reportType := types[i]
		report, err := j.Reports.GenerateReport(ctx, reports.Parameters{ReportType: reportType})
		if err != nil {
			logger.Error("generate scheduled report", slog.String("report_type", reportType), slog.Any("error", err))
			if tracked && finalAttempt(ctx) {
				j.forget(taskID)
			}
			return err
		}
		if tracked {
			j.record(taskID, i+1)
		}
		generated++
		logger.Info("scheduled report generated",
			slog.String("report_id", report.ID.String()),
			slog.String("report_type", report.ReportType),
			slog.Int("rows", report.Summary.TotalRecords),
		)
	}
	if tracked {
		j.forget(taskID)
	}
	return nil
}

func (j *ReportGenerateJob) taskID(ctx context.Context) (string, bool) {
	if j.TaskID != nil {
		return j.TaskID(ctx)
	}
	return asynq.GetTaskID(ctx)
}

func (j *ReportGenerateJob) resumeAt(taskID string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress[taskID]
}

func (j *ReportGenerateJob) record(taskID string, done int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.progress == nil {
		j.progress = make(map[string]int)
	}
	j.progress[taskID] = done
}

func (j *ReportGenerateJob) forget(taskID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.progress, taskID)
}

// finalAttempt reports whether asynq will not retry the task again.
func finalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}
