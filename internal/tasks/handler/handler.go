// Package handler exposes queue observability and controls over HTTP.
package handler

import (
	"context"
	"strconv"
	"time"

	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Trigger asks the worker to run a processing pass now.
type Trigger interface {
	EnqueueProcessBatch(ctx context.Context, reason string) error
}

// Store is the slice of the task repository these endpoints need.
type Store interface {
	Summary(ctx context.Context) (*taskrepo.QueueSummary, error)
	StatisticsSince(ctx context.Context, since time.Time) ([]taskrepo.TypeStatistics, error)
	ListRecent(ctx context.Context, status tasks.Status, limit int) ([]*tasks.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
	Cancel(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
	ResetForManualRetry(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
}

// Handler serves the tasks endpoints.
type Handler struct {
	repo    Store
	trigger Trigger
}

// New creates a tasks handler.
func New(repo Store, trigger Trigger) *Handler {
	return &Handler{repo: repo, trigger: trigger}
}

// Status handles GET /tasks/status.
func (h *Handler) Status(c *gin.Context) {
	summary, err := h.repo.Summary(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, summary)
}

// Statistics handles GET /tasks/statistics.
func (h *Handler) Statistics(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		httpkit.BadRequest(c, "days must be between 1 and 90")
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := h.repo.StatisticsSince(c.Request.Context(), since)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"since": since, "statistics": stats})
}

// List handles GET /tasks.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	results, err := h.repo.ListRecent(c.Request.Context(), tasks.Status(c.Query("status")), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"tasks": results, "count": len(results)})
}

// Get handles GET /tasks/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid task id")
		return
	}
	task, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, task)
}

// Process handles POST /tasks/process, asking the worker for a pass now.
func (h *Handler) Process(c *gin.Context) {
	if err := h.trigger.EnqueueProcessBatch(c.Request.Context(), "api"); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(202, gin.H{"status": "processing pass requested"})
}

// Cancel handles POST /tasks/:id/cancel, withdrawing a task before a
// worker claims it.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid task id")
		return
	}
	task, err := h.repo.Cancel(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, task)
}

// Retry handles POST /tasks/:id/retry, re-queueing a failed task with
// a fresh retry budget.
func (h *Handler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid task id")
		return
	}
	task, err := h.repo.ResetForManualRetry(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	if err := h.trigger.EnqueueProcessBatch(c.Request.Context(), "manual_retry"); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, task)
}
