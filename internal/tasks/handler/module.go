package handler

import (
	apphttp "leadflow_backend/internal/http"
)

// Module wires the queue endpoints into the HTTP app.
type Module struct {
	handler *Handler
}

// NewModule creates the tasks module.
func NewModule(h *Handler) *Module {
	return &Module{handler: h}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "tasks" }

// RegisterRoutes mounts the queue endpoints.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	group := rc.API.Group("/tasks")
	group.GET("", m.handler.List)
	group.GET("/status", m.handler.Status)
	group.GET("/statistics", m.handler.Statistics)
	group.POST("/process", m.handler.Process)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/cancel", m.handler.Cancel)
	group.POST("/:id/retry", m.handler.Retry)
}
