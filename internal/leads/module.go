package leads

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/platform/validator"
)

// Module wires the leads feature into the HTTP app and task processor.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates the leads module.
func NewModule(svc *service.Service, validate *validator.Validator) *Module {
	return &Module{
		service: svc,
		handler: handler.New(svc, validate),
	}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the leads endpoints.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	group := rc.API.Group("/leads")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.POST("/qualify-warm", m.handler.QualifyWarm)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/score", m.handler.Score)
	group.POST("/:id/engagement", m.handler.TrackEngagement)
	group.GET("/:id/insights", m.handler.Insights)
}

// RegisterTaskHandlers binds the module's queue handlers.
func (m *Module) RegisterTaskHandlers(p *tasks.Processor) {
	p.Register(tasks.TypeUpdateLeadScore, m.service.HandleUpdateLeadScore)
	p.Register(tasks.TypeQualifyWarmLeads, m.service.HandleQualifyWarmLeads)
	p.Register(tasks.TypeCheckEngagement, m.service.HandleCheckEngagement)
	p.Register(tasks.TypePageAnalytics, m.service.HandlePageAnalytics)
}
