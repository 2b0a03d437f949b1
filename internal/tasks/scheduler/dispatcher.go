package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/logger"
)

// Dispatcher periodically enqueues the trigger tasks that keep the
// queue draining: a processing pass every interval and a retention
// sweep once an hour.
type Dispatcher struct {
	client          *Client
	processInterval time.Duration
	log             *logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(client *Client, processInterval time.Duration, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		client:          client,
		processInterval: processInterval,
		log:             log,
	}
}

// Start runs the dispatch loops until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	processTicker := time.NewTicker(d.processInterval)
	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer processTicker.Stop()
	defer cleanupTicker.Stop()

	d.log.Info("dispatcher started", "process_interval", d.processInterval.String())

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-processTicker.C:
			if err := d.client.EnqueueProcessBatch(ctx, "interval"); err != nil {
				d.log.Error("enqueue processing pass failed", "error", err.Error())
			}
		case <-cleanupTicker.C:
			if err := d.client.EnqueueCleanup(ctx); err != nil {
				d.log.Error("enqueue cleanup failed", "error", err.Error())
			}
		}
	}
}
