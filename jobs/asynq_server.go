package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/stockapp/stockapp/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Queues      map[string]int
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance. A worker with no handlers still
// runs its scheduler, which lets a process only enqueue cron tasks.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{QueueCatalog: 1}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		srv *asynq.Server
		mux *asynq.ServeMux
	)
	if len(cfg.Handlers) > 0 {
		srv = asynq.NewServer(cfg.RedisOpts, asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
		})
		mux = asynq.NewServeMux()
		for _, h := range cfg.Handlers {
			if h.Type == "" || h.Handler == nil {
				continue
			}
			mux.HandleFunc(h.Type, h.Handler)
		}
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	if srv == nil && scheduler == nil {
		return nil, errors.New("worker: no handlers or cron entries")
	}
	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	if w.server != nil {
		go func() {
			errCh <- w.server.Run(w.mux)
		}()
	}
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		if w.server != nil {
			w.server.Shutdown()
		}
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueCatalogWarmup enqueues a catalog warm-up, optionally dropping the
// current cache generation first.
func (c *Client) EnqueueCatalogWarmup(ctx context.Context, invalidate bool) (*asynq.TaskInfo, error) {
	task, err := NewCatalogWarmupTask(invalidate)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// EnqueueReports enqueues a report generation batch.
func (c *Client) EnqueueReports(ctx context.Context, reportTypes ...string) (*asynq.TaskInfo, error) {
	task, err := NewReportGenerateTask(reportTypes...)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector reports queue state. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Enqueuer submits on-demand jobs. *Client satisfies it.
type Enqueuer interface {
	EnqueueCatalogWarmup(ctx context.Context, invalidate bool) (*asynq.TaskInfo, error)
	EnqueueReports(ctx context.Context, reportTypes ...string) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability and manual triggers.
type Handler struct {
	inspector QueueInspector
	enqueuer  Enqueuer
	queues    []string
	logger    *slog.Logger
}

type enqueued struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Queue string `json:"queue"`
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Failed  int    `json:"failed"`
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil enqueuer
// leaves the trigger endpoints unmounted.
func NewHandler(inspector QueueInspector, enqueuer Enqueuer, logger *slog.Logger, queues ...string) *Handler {
	if len(queues) == 0 {
		queues = []string{QueueCatalog, QueueReports}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, enqueuer: enqueuer, queues: queues, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	if h.enqueuer != nil {
		r.Post("/catalog/warmup", h.triggerWarmup)
		r.Post("/reports", h.triggerReports)
	}
}

func (h *Handler) triggerWarmup(w http.ResponseWriter, r *http.Request) {
	invalidate, _ := strconv.ParseBool(r.URL.Query().Get("invalidate"))
	info, err := h.enqueuer.EnqueueCatalogWarmup(r.Context(), invalidate)
	h.respondEnqueued(w, TaskCatalogWarmup, info, err)
}

func (h *Handler) triggerReports(w http.ResponseWriter, r *http.Request) {
	var payload ReportGeneratePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	info, err := h.enqueuer.EnqueueReports(r.Context(), payload.ReportTypes...)
	h.respondEnqueued(w, TaskReportsGenerate, info, err)
}

func (h *Handler) respondEnqueued(w http.ResponseWriter, taskType string, info *asynq.TaskInfo, err error) {
	if err != nil {
		h.logger.Error("enqueue job", slog.String("task", taskType), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "enqueue failed")
		return
	}
	out := enqueued{Type: taskType}
	if info != nil {
		out.ID = info.ID
		out.Queue = info.Queue
	}
	httpx.JSON(w, http.StatusAccepted, out)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	out := make([]queueHealth, 0, len(h.queues))
	for _, queue := range h.queues {
		if h.inspector == nil {
			out = append(out, queueHealth{Queue: queue})
			continue
		}
		info, err := h.inspector.GetQueueInfo(queue)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			out = append(out, queueHealth{Queue: queue})
			continue
		}
		if err != nil {
			h.logger.Warn("jobs health", slog.String("queue", queue), slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "queue inspection failed")
			return
		}
		out = append(out, queueHealth{Queue: info.Queue, Pending: info.Pending, Active: info.Active, Failed: info.Failed})
	}
	httpx.JSON(w, http.StatusOK, out)
}
