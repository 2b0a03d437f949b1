// Package calls wires the call scheduling feature together.
package calls

import (
	"leadflow_backend/internal/calls/handler"
	"leadflow_backend/internal/calls/service"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/platform/validator"
)

// Module wires the calls feature into the HTTP app and task processor.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates the calls module.
func NewModule(svc *service.Service, validate *validator.Validator) *Module {
	return &Module{
		service: svc,
		handler: handler.New(svc, validate),
	}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "calls" }

// RegisterRoutes mounts the calls endpoints. The compliance and
// optimal-time reads live under /leads because they describe a lead,
// not a booked call.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	group := rc.API.Group("/calls")
	group.POST("", m.handler.Schedule)
	group.GET("", m.handler.Upcoming)
	group.GET("/queue", m.handler.Queue)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/start", m.handler.Start)
	group.POST("/:id/cancel", m.handler.Cancel)
	group.POST("/:id/complete", m.handler.Complete)

	leadGroup := rc.API.Group("/leads")
	leadGroup.GET("/:id/compliance", m.handler.Compliance)
	leadGroup.GET("/:id/optimal-call-time", m.handler.OptimalTime)
}

// RegisterTaskHandlers binds the module's queue handlers.
func (m *Module) RegisterTaskHandlers(p *tasks.Processor) {
	p.Register(tasks.TypeScheduleCall, m.service.HandleScheduleCall)
	p.Register(tasks.TypeSendReminder, m.service.HandleSendReminder)
}
