// Package handler exposes the leads feature over HTTP.
package handler

import (
	"strconv"
	"time"

	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the leads endpoints.
type Handler struct {
	service  *service.Service
	validate *validator.Validator
}

// New creates a leads handler.
func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{service: svc, validate: validate}
}

// Create handles POST /leads.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, "invalid request body")
		return
	}
	if fieldErrors := h.validate.Struct(req); fieldErrors != nil {
		httpkit.ValidationFailed(c, fieldErrors)
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		httpkit.BadRequest(c, "invalid owner id")
		return
	}

	lead, err := h.service.Create(c.Request.Context(), leadrepo.CreateParams{
		OwnerID:           ownerID,
		Email:             req.Email,
		Phone:             req.Phone,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Company:           req.Company,
		Title:             req.Title,
		LinkedInURL:       req.LinkedInURL,
		Industry:          req.Industry,
		CompanySize:       req.CompanySize,
		Source:            req.Source,
		Tier:              req.Tier,
		ConsentRecorded:   req.ConsentRecorded,
		PreferredCallHour: req.PreferredCallHour,
		Timezone:          req.Timezone,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, lead)
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	lead, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, lead)
}

// List handles GET /leads.
func (h *Handler) List(c *gin.Context) {
	filter := leadrepo.ListFilter{
		Status:   domain.Status(c.Query("status")),
		Category: domain.Category(c.Query("category")),
	}
	if v := c.Query("ready_for_call"); v != "" {
		ready := v == "true"
		filter.ReadyForCall = &ready
	}
	if v := c.Query("min_score"); v != "" {
		minScore, err := strconv.Atoi(v)
		if err != nil {
			httpkit.BadRequest(c, "min_score must be an integer")
			return
		}
		filter.MinScore = &minScore
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	results, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"leads": results, "count": len(results)})
}

// Score handles POST /leads/:id/score, forcing a recomputation.
func (h *Handler) Score(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.service.RecalculateScore(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, result)
}

// TrackEngagement handles POST /leads/:id/engagement.
func (h *Handler) TrackEngagement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.TrackEngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, "invalid request body")
		return
	}
	if fieldErrors := h.validate.Struct(req); fieldErrors != nil {
		httpkit.ValidationFailed(c, fieldErrors)
		return
	}

	var occurredAt time.Time
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	event, newScore, err := h.service.TrackEngagement(c.Request.Context(), id, domain.EngagementType(req.EventType), req.Metadata, occurredAt)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, transport.TrackEngagementResponse{
		EventID:  event.ID.String(),
		NewScore: newScore,
	})
}

// Insights handles GET /leads/:id/insights.
func (h *Handler) Insights(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	insights, err := h.service.GetInsights(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, insights)
}

// QualifyWarm handles POST /leads/qualify-warm, running the sweep now.
func (h *Handler) QualifyWarm(c *gin.Context) {
	result, err := h.service.QualifyWarmLeads(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid lead id")
		return uuid.Nil, false
	}
	return id, true
}
