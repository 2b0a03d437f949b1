// Package handler exposes the sequences feature over HTTP.
package handler

import (
	"leadflow_backend/internal/sequences/service"
	"leadflow_backend/internal/sequences/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the sequences endpoints.
type Handler struct {
	service  *service.Service
	validate *validator.Validator
}

// New creates a sequences handler.
func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{service: svc, validate: validate}
}

// Start handles POST /sequences.
func (h *Handler) Start(c *gin.Context) {
	var req transport.StartSequenceRequest
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

	seq, err := h.service.Start(c.Request.Context(), leadID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, seq)
}

// Get handles GET /sequences/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid sequence id")
		return
	}

	seq, logs, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"sequence": seq, "emails": logs})
}

// Cancel handles POST /sequences/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid sequence id")
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}
