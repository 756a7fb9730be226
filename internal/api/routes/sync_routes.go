package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/skillmint/regsync/internal/api/handlers"
	"github.com/skillmint/regsync/internal/api/middleware"
	"github.com/skillmint/regsync/pkg/security/auth"
)

// SyncRoutes wires the admin-only sync management endpoints.
type SyncRoutes struct {
	handler    *handlers.SyncHandler
	jwtService *auth.JWTService
}

func NewSyncRoutes(handler *handlers.SyncHandler, jwtService *auth.JWTService) *SyncRoutes {
	return &SyncRoutes{handler: handler, jwtService: jwtService}
}

func (r *SyncRoutes) RegisterRoutes(router *gin.Engine) {
	sync := router.Group("/api/sync")
	sync.Use(middleware.NewAuthMiddleware(r.jwtService))

	sync.GET("/status", r.handler.Status)
	sync.POST("/resync", r.handler.ResyncAll)
	sync.POST("/events/:name", r.handler.ResyncEvent)
	sync.POST("/mail", r.handler.BulkMail)
}
