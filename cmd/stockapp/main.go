package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockapp/stockapp/internal/app"
	"github.com/stockapp/stockapp/internal/catalog"
	jobmetrics "github.com/stockapp/stockapp/internal/jobs"
	"github.com/stockapp/stockapp/internal/observability"
	"github.com/stockapp/stockapp/internal/platform/cache"
	"github.com/stockapp/stockapp/internal/platform/db"
	"github.com/stockapp/stockapp/internal/platform/gotenberg"
	"github.com/stockapp/stockapp/internal/reports"
	reportshttp "github.com/stockapp/stockapp/internal/reports/http"
	"github.com/stockapp/stockapp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{StatementTimeout: cfg.CatalogTimeout})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	var provider catalog.Provider = catalog.NewRepository(dbpool)
	readiness := []app.ReadinessCheck{{Name: "postgres", Check: dbpool.Ping}}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, serving catalog without cache", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
		if err := catalogCache.ListenForInvalidation(ctx, catalog.BumpChannel); err != nil {
			logger.Warn("subscribe catalog invalidation", slog.Any("error", err))
		}
		provider = catalog.NewCachedProvider(provider, catalogCache)
		readiness = append(readiness, app.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	money, err := reports.NewMoney(cfg.ReportCurrency)
	if err != nil {
		logger.Error("report currency", slog.Any("error", err))
		os.Exit(1)
	}
	reportService := reports.NewService(provider, reports.NewMemoryHistory(cfg.ReportHistoryLimit),
		reports.WithLogger(logger),
		reports.WithRecorder(metrics),
		reports.WithMoney(money),
	)

	pdfClient := gotenberg.NewClient(cfg.GotenbergURL, nil)
	readiness = append(readiness, app.ReadinessCheck{Name: "gotenberg", Check: pdfClient.Ping})

	reportHandler := reportshttp.NewHandler(logger, reportService, pdfClient)
	reportHandler.WithTimeout(cfg.CatalogTimeout)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger)

		go runReportWorker(ctx, redisOpts, reportService, logger, jobMetrics)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reportHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
		Readiness:     readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runReportWorker consumes the reports queue inside the API process so
// scheduled reports land in the history this process serves.
func runReportWorker(ctx context.Context, redisOpts asynq.RedisClientOpt, service *reports.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) {
	reportJob := jobs.NewReportGenerateJob(service, logger, metrics)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Queues:      map[string]int{jobs.QueueReports: 1},
		Concurrency: 1,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportsGenerate, Handler: reportJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init report worker", slog.Any("error", err))
		return
	}
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("report worker run", slog.Any("error", err))
	}
}
