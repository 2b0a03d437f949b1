package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type settledTask struct {
	id         uuid.UUID
	state      Status
	retryCount int
	delay      time.Duration
	lastError  string
}

type fakeStore struct {
	mu      sync.Mutex
	batch   []*Task
	settled map[uuid.UUID]settledTask
}

func newFakeStore(batch ...*Task) *fakeStore {
	return &fakeStore{batch: batch, settled: make(map[uuid.UUID]settledTask)}
}

func (f *fakeStore) ClaimBatch(_ context.Context, limit int) ([]*Task, error) {
	if len(f.batch) > limit {
		return f.batch[:limit], nil
	}
	return f.batch, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled[id] = settledTask{id: id, state: StatusCompleted}
	return nil
}

func (f *fakeStore) MarkForRetry(_ context.Context, id uuid.UUID, retryCount int, delay time.Duration, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled[id] = settledTask{id: id, state: StatusPending, retryCount: retryCount, delay: delay, lastError: lastError}
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, retryCount int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled[id] = settledTask{id: id, state: StatusFailed, retryCount: retryCount, lastError: lastError}
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	tasks []uuid.UUID
}

func (f *fakeNotifier) TaskFailedPermanently(_ context.Context, task *Task, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task.ID)
}

func newTask(taskType Type, retryCount int) *Task {
	return &Task{
		ID:         uuid.New(),
		Type:       taskType,
		Status:     StatusInProgress,
		Priority:   PriorityMedium,
		Payload:    json.RawMessage(`{}`),
		RetryCount: retryCount,
		MaxRetries: MaxRetries,
	}
}

func testLogger() *logger.Logger {
	return logger.New("development")
}

func TestProcessBatchSuccess(t *testing.T) {
	task := newTask(TypeUpdateLeadScore, 0)
	store := newFakeStore(task)
	p := NewProcessor(store, nil, testLogger(), 50, 10)
	p.Register(TypeUpdateLeadScore, func(_ context.Context, _ *Task) (interface{}, error) {
		return map[string]int{"score": 42}, nil
	})

	result, err := p.ProcessBatch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Claimed != 1 || result.Succeeded != 1 {
		t.Fatalf("result = %+v, want 1 claimed 1 succeeded", result)
	}
	if store.settled[task.ID].state != StatusCompleted {
		t.Fatalf("task state = %v, want completed", store.settled[task.ID].state)
	}
}

func TestProcessBatchRetryBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		wantDelay  time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
	}

	for _, tt := range tests {
		task := newTask(TypeSendSequenceEmail, tt.retryCount)
		store := newFakeStore(task)
		p := NewProcessor(store, nil, testLogger(), 50, 10)
		p.Register(TypeSendSequenceEmail, func(_ context.Context, _ *Task) (interface{}, error) {
			return nil, errors.New("smtp timeout")
		})

		if _, err := p.ProcessBatch(context.Background()); err != nil {
			t.Fatal(err)
		}

		settled := store.settled[task.ID]
		if settled.state != StatusPending {
			t.Fatalf("retry %d: state = %v, want pending", tt.retryCount, settled.state)
		}
		if settled.retryCount != tt.retryCount+1 {
			t.Fatalf("retry %d: retryCount = %d, want %d", tt.retryCount, settled.retryCount, tt.retryCount+1)
		}
		if settled.delay != tt.wantDelay {
			t.Fatalf("retry %d: delay = %v, want %v", tt.retryCount, settled.delay, tt.wantDelay)
		}
	}
}

func TestProcessBatchExhaustedRetriesFailsPermanently(t *testing.T) {
	task := newTask(TypeScheduleCall, MaxRetries)
	store := newFakeStore(task)
	notifier := &fakeNotifier{}
	p := NewProcessor(store, notifier, testLogger(), 50, 10)
	p.Register(TypeScheduleCall, func(_ context.Context, _ *Task) (interface{}, error) {
		return nil, errors.New("still broken")
	})

	result, err := p.ProcessBatch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Retried != 0 {
		t.Fatalf("result = %+v, want 1 failed 0 retried", result)
	}

	settled := store.settled[task.ID]
	if settled.state != StatusFailed {
		t.Fatalf("state = %v, want failed", settled.state)
	}
	if len(notifier.tasks) != 1 || notifier.tasks[0] != task.ID {
		t.Fatalf("notifier calls = %v, want [%s]", notifier.tasks, task.ID)
	}
}

func TestProcessBatchNonRetryableErrorFailsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "compliance", err: apperr.Compliance("lead cannot be called", nil)},
		{name: "limit exceeded", err: apperr.LimitExceeded("monthly call limit reached")},
		{name: "validation", err: apperr.Validation("bad payload")},
		{name: "not found", err: apperr.NotFound("lead not found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask(TypeScheduleCall, 0)
			store := newFakeStore(task)
			p := NewProcessor(store, nil, testLogger(), 50, 10)
			p.Register(TypeScheduleCall, func(_ context.Context, _ *Task) (interface{}, error) {
				return nil, tt.err
			})

			if _, err := p.ProcessBatch(context.Background()); err != nil {
				t.Fatal(err)
			}
			if store.settled[task.ID].state != StatusFailed {
				t.Fatalf("state = %v, want failed with retry budget remaining", store.settled[task.ID].state)
			}
		})
	}
}

func TestProcessBatchUnknownTypeFails(t *testing.T) {
	task := newTask(Type("mystery"), 0)
	store := newFakeStore(task)
	p := NewProcessor(store, nil, testLogger(), 50, 10)

	if _, err := p.ProcessBatch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.settled[task.ID].state != StatusFailed {
		t.Fatalf("state = %v, want failed for unregistered type", store.settled[task.ID].state)
	}
}

func TestProcessBatchRecoversPanickingHandler(t *testing.T) {
	task := newTask(TypeSendReminder, 0)
	store := newFakeStore(task)
	p := NewProcessor(store, nil, testLogger(), 50, 10)
	p.Register(TypeSendReminder, func(_ context.Context, _ *Task) (interface{}, error) {
		panic("boom")
	})

	if _, err := p.ProcessBatch(context.Background()); err != nil {
		t.Fatal(err)
	}
	settled := store.settled[task.ID]
	if settled.state != StatusPending {
		t.Fatalf("state = %v, want pending (panic treated as retryable)", settled.state)
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	good := newTask(TypeUpdateLeadScore, 0)
	bad := newTask(TypeSendSequenceEmail, 0)
	store := newFakeStore(good, bad)
	p := NewProcessor(store, nil, testLogger(), 50, 10)
	p.Register(TypeUpdateLeadScore, func(_ context.Context, _ *Task) (interface{}, error) {
		return nil, nil
	})
	p.Register(TypeSendSequenceEmail, func(_ context.Context, _ *Task) (interface{}, error) {
		return nil, errors.New("smtp down")
	})

	result, err := p.ProcessBatch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Retried != 1 {
		t.Fatalf("result = %+v, want 1 succeeded 1 retried", result)
	}
}

func TestRetryBackoffDoubles(t *testing.T) {
	if RetryBackoff(0) != 1*time.Minute || RetryBackoff(1) != 2*time.Minute || RetryBackoff(2) != 4*time.Minute {
		t.Fatalf("backoff sequence = %v %v %v, want 1m 2m 4m", RetryBackoff(0), RetryBackoff(1), RetryBackoff(2))
	}
}
