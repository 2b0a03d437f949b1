// Package http assembles the API server from feature modules.
package http

import (
	"github.com/gin-gonic/gin"
)

// RouterContext carries the route groups modules mount themselves on.
type RouterContext struct {
	// API is the versioned group all feature routes hang off.
	API *gin.RouterGroup
}

// Module is implemented by each feature slice that exposes routes.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	// RegisterRoutes mounts the module's endpoints.
	RegisterRoutes(rc *RouterContext)
}
