package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/skillmint/regsync/internal/api/handlers"
	"github.com/skillmint/regsync/internal/api/middleware"
	"github.com/skillmint/regsync/pkg/security/auth"
)

// RegistrationRoutes wires the registration endpoints. Submission is
// public and rate limited; everything else is admin-only.
type RegistrationRoutes struct {
	handler    *handlers.RegistrationHandler
	jwtService *auth.JWTService
	limiter    auth.RateLimiter
}

func NewRegistrationRoutes(handler *handlers.RegistrationHandler, jwtService *auth.JWTService, limiter auth.RateLimiter) *RegistrationRoutes {
	return &RegistrationRoutes{handler: handler, jwtService: jwtService, limiter: limiter}
}

func (r *RegistrationRoutes) RegisterRoutes(router *gin.Engine) {
	public := router.Group("/api/registrations")
	public.POST("", middleware.NewRateLimitMiddleware(r.limiter), r.handler.Submit)

	admin := router.Group("/api/registrations")
	admin.Use(middleware.NewAuthMiddleware(r.jwtService))
	admin.GET("", r.handler.List)
	admin.GET("/:id", r.handler.Get)
	admin.PUT("/:id", r.handler.Update)
	admin.DELETE("/:id", r.handler.Delete)
}
