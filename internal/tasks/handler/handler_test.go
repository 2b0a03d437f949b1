package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeStore struct {
	summary   *taskrepo.QueueSummary
	cancelled []uuid.UUID
	cancelErr error
}

func (f *fakeStore) Summary(context.Context) (*taskrepo.QueueSummary, error) {
	return f.summary, nil
}

func (f *fakeStore) StatisticsSince(context.Context, time.Time) ([]taskrepo.TypeStatistics, error) {
	return nil, nil
}

func (f *fakeStore) ListRecent(context.Context, tasks.Status, int) ([]*tasks.Task, error) {
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*tasks.Task, error) {
	return &tasks.Task{ID: id, Status: tasks.StatusPending}, nil
}

func (f *fakeStore) Cancel(_ context.Context, id uuid.UUID) (*tasks.Task, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return &tasks.Task{ID: id, Status: tasks.StatusCancelled}, nil
}

func (f *fakeStore) ResetForManualRetry(_ context.Context, id uuid.UUID) (*tasks.Task, error) {
	return &tasks.Task{ID: id, Status: tasks.StatusPending}, nil
}

type fakeTrigger struct{ reasons []string }

func (f *fakeTrigger) EnqueueProcessBatch(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return nil
}

func newTestRouter(store Store, trigger Trigger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := New(store, trigger)
	router.GET("/tasks/status", h.Status)
	router.POST("/tasks/:id/cancel", h.Cancel)
	return router
}

func TestStatusReportsTotalsAndOverdue(t *testing.T) {
	store := &fakeStore{summary: &taskrepo.QueueSummary{
		TotalTasks: 12,
		ByStatus: taskrepo.StatusCounts{
			Pending: 5, InProgress: 2, Completed: 3, Failed: 1, Cancelled: 1,
		},
		OverdueTasks: 4,
	}}
	router := newTestRouter(store, &fakeTrigger{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		TotalTasks int `json:"total_tasks"`
		ByStatus   struct {
			Pending   int `json:"pending"`
			Cancelled int `json:"cancelled"`
		} `json:"by_status"`
		OverdueTasks int `json:"overdue_tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.TotalTasks != 12 || body.ByStatus.Pending != 5 || body.ByStatus.Cancelled != 1 || body.OverdueTasks != 4 {
		t.Fatalf("summary body = %+v", body)
	}
}

func TestCancelPendingTask(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(store, &fakeTrigger{})
	id := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/"+id.String()+"/cancel", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(store.cancelled) != 1 || store.cancelled[0] != id {
		t.Fatalf("cancelled = %v, want [%s]", store.cancelled, id)
	}
}

func TestCancelClaimedTaskConflicts(t *testing.T) {
	store := &fakeStore{cancelErr: apperr.Conflict("only pending tasks can be cancelled, task is in_progress")}
	router := newTestRouter(store, &fakeTrigger{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/"+uuid.NewString()+"/cancel", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body %s", rec.Code, rec.Body.String())
	}
}
