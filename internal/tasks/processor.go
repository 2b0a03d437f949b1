package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc executes one task and returns a result to store on the
// row. Returning an error consumes retry budget unless the error is a
// non-retryable apperr kind.
type HandlerFunc func(ctx context.Context, task *Task) (interface{}, error)

// BatchResult summarizes one processing pass.
type BatchResult struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// Settler is the slice of the repository the processor needs to claim
// and settle tasks.
type Settler interface {
	ClaimBatch(ctx context.Context, limit int) ([]*Task, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, result interface{}) error
	MarkForRetry(ctx context.Context, id uuid.UUID, retryCount int, delay time.Duration, lastError string) error
	MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string) error
}

// FailureNotifier is told when a task exhausts its retries.
type FailureNotifier interface {
	TaskFailedPermanently(ctx context.Context, task *Task, lastError string)
}

// Processor claims batches of ready tasks and runs their handlers with
// bounded concurrency.
type Processor struct {
	store     Settler
	notifier  FailureNotifier
	log       *logger.Logger
	batchSize int
	width     int

	mu       sync.RWMutex
	handlers map[Type]HandlerFunc
}

// NewProcessor creates a processor. batchSize caps how many tasks one
// pass claims; width caps how many run at once.
func NewProcessor(store Settler, notifier FailureNotifier, log *logger.Logger, batchSize, width int) *Processor {
	return &Processor{
		store:     store,
		notifier:  notifier,
		log:       log,
		batchSize: batchSize,
		width:     width,
		handlers:  make(map[Type]HandlerFunc),
	}
}

// Register binds a handler to a task type. Panics on duplicate
// registration since that is always a wiring bug.
func (p *Processor) Register(taskType Type, handler HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.handlers[taskType]; exists {
		panic(fmt.Sprintf("tasks: handler already registered for %s", taskType))
	}
	p.handlers[taskType] = handler
}

func (p *Processor) handlerFor(taskType Type) (HandlerFunc, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[taskType]
	return h, ok
}

// ProcessBatch claims up to the batch size of ready tasks and runs them.
// Individual task failures never fail the batch.
func (p *Processor) ProcessBatch(ctx context.Context) (*BatchResult, error) {
	claimed, err := p.store.ClaimBatch(ctx, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}

	result := &BatchResult{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.width)

	for _, task := range claimed {
		task := task
		g.Go(func() error {
			outcome := p.runOne(gctx, task)
			mu.Lock()
			switch outcome {
			case outcomeSucceeded:
				result.Succeeded++
			case outcomeRetried:
				result.Retried++
			case outcomeFailed:
				result.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	p.log.Info("batch processed",
		"claimed", result.Claimed,
		"succeeded", result.Succeeded,
		"retried", result.Retried,
		"failed", result.Failed,
	)
	return result, nil
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeRetried
	outcomeFailed
)

func (p *Processor) runOne(ctx context.Context, task *Task) outcome {
	p.log.TaskEvent("started", task.ID.String(), string(task.Type))

	handler, ok := p.handlerFor(task.Type)
	if !ok {
		// Unknown types cannot succeed later; fail them outright.
		return p.settleFailure(ctx, task, apperr.Internal("no handler registered for task type "+string(task.Type)))
	}

	handlerResult, err := p.safeRun(ctx, handler, task)
	if err != nil {
		return p.settleFailure(ctx, task, err)
	}

	if err := p.store.MarkCompleted(ctx, task.ID, handlerResult); err != nil {
		p.log.DatabaseError("mark task completed", err)
		return outcomeFailed
	}
	p.log.TaskEvent("completed", task.ID.String(), string(task.Type))
	return outcomeSucceeded
}

// safeRun shields the batch from panicking handlers.
func (p *Processor) safeRun(ctx context.Context, handler HandlerFunc, task *Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()
	return handler(ctx, task)
}

func (p *Processor) settleFailure(ctx context.Context, task *Task, taskErr error) outcome {
	retryCount := task.RetryCount + 1
	p.log.TaskFailure(task.ID.String(), string(task.Type), task.RetryCount, task.MaxRetries, taskErr)

	if apperr.Retryable(taskErr) && retryCount <= task.MaxRetries {
		// The delay doubles per retry already spent, so the first retry
		// waits 2^0 minutes.
		delay := RetryBackoff(task.RetryCount)
		if err := p.store.MarkForRetry(ctx, task.ID, retryCount, delay, taskErr.Error()); err != nil {
			p.log.DatabaseError("mark task for retry", err)
			return outcomeFailed
		}
		return outcomeRetried
	}

	if err := p.store.MarkFailed(ctx, task.ID, retryCount, taskErr.Error()); err != nil {
		p.log.DatabaseError("mark task failed", err)
		return outcomeFailed
	}
	if p.notifier != nil {
		p.notifier.TaskFailedPermanently(ctx, task, taskErr.Error())
	}
	return outcomeFailed
}
