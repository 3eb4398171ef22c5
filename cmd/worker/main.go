package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stockapp/stockapp/internal/app"
	"github.com/stockapp/stockapp/internal/catalog"
	jobmetrics "github.com/stockapp/stockapp/internal/jobs"
	"github.com/stockapp/stockapp/internal/platform/cache"
	"github.com/stockapp/stockapp/internal/platform/db"
	"github.com/stockapp/stockapp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2, StatementTimeout: cfg.CatalogTimeout})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	cached := catalog.NewCachedProvider(catalog.NewRepository(pool), catalogCache)

	metrics := jobmetrics.NewMetrics(nil)
	warmupJob := jobs.NewCatalogWarmupJob(cached, logger, metrics)
	warmupJob.Timeout = cfg.CatalogTimeout

	warmupTask, err := jobs.NewCatalogWarmupTask(false)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	cron := []jobs.CronRegistration{
		{Spec: cfg.CatalogWarmupSpec, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}
	if cfg.ReportSchedule != "" {
		reportTask, err := jobs.NewReportGenerateTask(jobs.ParseReportSchedule(cfg.ReportScheduleTypes)...)
		if err != nil {
			logger.Error("build report task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReportSchedule, Task: reportTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Queues:    map[string]int{jobs.QueueCatalog: 1},
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("warmup_schedule", cfg.CatalogWarmupSpec), slog.String("report_schedule", cfg.ReportSchedule))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
