package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/skillmint/regsync/internal/api/handlers"
	"github.com/skillmint/regsync/internal/api/middleware"
	"github.com/skillmint/regsync/pkg/security/auth"
)

// EventRoutes wires the event endpoints. Listing and reading are public
// for the marketing site; mutations are admin-only.
type EventRoutes struct {
	handler    *handlers.EventHandler
	jwtService *auth.JWTService
}

func NewEventRoutes(handler *handlers.EventHandler, jwtService *auth.JWTService) *EventRoutes {
	return &EventRoutes{handler: handler, jwtService: jwtService}
}

func (r *EventRoutes) RegisterRoutes(router *gin.Engine) {
	events := router.Group("/api/events")
	events.GET("", r.handler.List)
	events.GET("/:id", r.handler.Get)

	admin := router.Group("/api/events")
	admin.Use(middleware.NewAuthMiddleware(r.jwtService))
	admin.POST("", r.handler.Create)
	admin.PUT("/:id", r.handler.Update)
	admin.DELETE("/:id", r.handler.Delete)
}
