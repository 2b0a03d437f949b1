package scheduler

import (
	"context"
	"time"

	"leadflow_backend/internal/tasks"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper is the slice of the task repository the retention sweep needs.
type Sweeper interface {
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error)
}

// BatchRunner runs one queue processing pass.
type BatchRunner interface {
	ProcessBatch(ctx context.Context) (*tasks.BatchResult, error)
}

// Worker consumes trigger tasks and drives the queue processor.
type Worker struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	processor     BatchRunner
	sweeper       Sweeper
	retentionDays int
	log           *logger.Logger
}

// NewWorker creates the asynq worker.
func NewWorker(cfg config.SchedulerConfig, retentionDays int, processor BatchRunner, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues: map[string]int{
			cfg.GetAsynqQueueName(): 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("trigger task failed", "type", task.Type(), "error", err.Error())
		}),
	})

	w := &Worker{
		server:        server,
		mux:           asynq.NewServeMux(),
		processor:     processor,
		sweeper:       sweeper,
		retentionDays: retentionDays,
		log:           log,
	}
	w.mux.HandleFunc(TaskProcessBatch, w.handleProcessBatch)
	w.mux.HandleFunc(TaskCleanup, w.handleCleanup)
	return w, nil
}

// Run blocks serving trigger tasks until Shutdown is called.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleProcessBatch(ctx context.Context, t *asynq.Task) error {
	reason := ParseProcessBatchReason(t)
	w.log.Debug("processing pass triggered", "reason", reason)
	_, err := w.processor.ProcessBatch(ctx)
	return err
}

func (w *Worker) handleCleanup(ctx context.Context, _ *asynq.Task) error {
	// Tasks stuck in_progress for over an hour belong to a dead worker.
	released, err := w.sweeper.ReleaseStuck(ctx, time.Now().UTC().Add(-1*time.Hour))
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -w.retentionDays)
	deleted, err := w.sweeper.DeleteSettledBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	w.log.Info("queue cleanup complete", "released", released, "deleted", deleted, "retention_days", w.retentionDays)
	return nil
}
