package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stockapp/stockapp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CatalogWarmer is the cache surface the warm-up job drives.
type CatalogWarmer interface {
	Warm(ctx context.Context) error
	Invalidate(ctx context.Context) error
}

// CatalogWarmupJob pre-populates the catalog snapshot cache.
type CatalogWarmupJob struct {
	Catalog CatalogWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewCatalogWarmupJob wires dependencies for the warm-up handler.
func NewCatalogWarmupJob(catalog CatalogWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{Catalog: catalog, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes catalog warm-up tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskCatalogWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskCatalogWarmup).With(slog.Bool("invalidate", payload.Invalidate))
	started := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	if payload.Invalidate {
		if err := j.Catalog.Invalidate(ctx); err != nil {
			logger.Error("invalidate catalog cache", slog.Any("error", err))
			return err
		}
	}
	if err := j.Catalog.Warm(ctx); err != nil {
		logger.Error("warm catalog cache", slog.Any("error", err))
		return err
	}
	metrics.AddProcessed(TaskCatalogWarmup, 2)
	logger.Info("catalog cache warmed", slog.Duration("duration", time.Since(started)))
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
