// Package sequences wires the nurture sequence feature together.
package sequences

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/sequences/handler"
	"leadflow_backend/internal/sequences/service"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/platform/validator"
)

// Module wires the sequences feature into the HTTP app and task
// processor.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates the sequences module.
func NewModule(svc *service.Service, validate *validator.Validator) *Module {
	return &Module{
		service: svc,
		handler: handler.New(svc, validate),
	}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "sequences" }

// RegisterRoutes mounts the sequences endpoints.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	group := rc.API.Group("/sequences")
	group.POST("", m.handler.Start)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/cancel", m.handler.Cancel)
}

// RegisterTaskHandlers binds the module's queue handlers.
func (m *Module) RegisterTaskHandlers(p *tasks.Processor) {
	p.Register(tasks.TypeSendSequenceEmail, m.service.HandleSendSequenceEmail)
}
