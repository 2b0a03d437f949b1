// Package handler exposes the calls feature over HTTP.
package handler

import (
	"strconv"
	"time"

	"leadflow_backend/internal/calls/service"
	"leadflow_backend/internal/calls/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the calls endpoints.
type Handler struct {
	service  *service.Service
	validate *validator.Validator
}

// New creates a calls handler.
func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{service: svc, validate: validate}
}

// Schedule handles POST /calls.
func (h *Handler) Schedule(c *gin.Context) {
	var req transport.ScheduleCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, "invalid request body")
		return
	}
	if fieldErrors := h.validate.Struct(req); fieldErrors != nil {
		httpkit.ValidationFailed(c, fieldErrors)
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.BadRequest(c, "invalid lead id")
		return
	}

	call, err := h.service.Schedule(c.Request.Context(), leadID, req.ScheduledAt, req.Priority)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, call)
}

// Get handles GET /calls/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "invalid call id")
	if !ok {
		return
	}
	call, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, call)
}

// Start handles POST /calls/:id/start.
func (h *Handler) Start(c *gin.Context) {
	id, ok := parseID(c, "invalid call id")
	if !ok {
		return
	}
	call, err := h.service.Start(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, call)
}

// Cancel handles POST /calls/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "invalid call id")
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

// Complete handles POST /calls/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	id, ok := parseID(c, "invalid call id")
	if !ok {
		return
	}

	var req transport.CompleteCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, "invalid request body")
		return
	}
	if fieldErrors := h.validate.Struct(req); fieldErrors != nil {
		httpkit.ValidationFailed(c, fieldErrors)
		return
	}

	call, err := h.service.Complete(c.Request.Context(), id, req.Outcome, req.Notes)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, call)
}

// Upcoming handles GET /calls.
func (h *Handler) Upcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	calls, err := h.service.ListUpcoming(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"calls": calls, "count": len(calls)})
}

// Queue handles GET /calls/queue, the call-ready leads by score.
func (h *Handler) Queue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	leads, err := h.service.CallQueue(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"leads": leads, "count": len(leads)})
}

// Compliance handles GET /leads/:id/compliance.
func (h *Handler) Compliance(c *gin.Context) {
	id, ok := parseID(c, "invalid lead id")
	if !ok {
		return
	}

	var at *time.Time
	if v := c.Query("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpkit.BadRequest(c, "at must be an RFC 3339 timestamp")
			return
		}
		at = &parsed
	}

	result, checkedAt, err := h.service.CheckCompliance(c.Request.Context(), id, at)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{
		"checked_for":  checkedAt,
		"compliant":    result.Compliant,
		"requirements": result.Requirements,
	})
}

// OptimalTime handles GET /leads/:id/optimal-call-time.
func (h *Handler) OptimalTime(c *gin.Context) {
	id, ok := parseID(c, "invalid lead id")
	if !ok {
		return
	}

	at, err := h.service.OptimalTimeForLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"lead_id": id, "optimal_call_time": at})
}

func parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}
