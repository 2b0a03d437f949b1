package notification

import (
	"strconv"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module exposes notifications over HTTP.
type Module struct {
	repo *Repository
}

// NewModule creates the notification module.
func NewModule(repo *Repository) *Module {
	return &Module{repo: repo}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "notifications" }

// RegisterRoutes mounts the notification endpoints.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	group := rc.API.Group("/notifications")
	group.GET("", m.list)
	group.POST("/:id/read", m.markRead)
}

func (m *Module) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	results, err := m.repo.ListUnread(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"notifications": results, "count": len(results)})
}

func (m *Module) markRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, "invalid notification id")
		return
	}
	if err := m.repo.MarkRead(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}
