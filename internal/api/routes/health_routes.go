package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillmint/regsync/internal/infrastructure/cache"
	"github.com/skillmint/regsync/internal/infrastructure/persistence/postgres/connection"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// SetupHealthRoutes registers liveness and readiness endpoints. Liveness
// never touches dependencies; readiness pings them.
func SetupHealthRoutes(router *gin.Engine, db *connection.Database, redis *cache.RedisClient) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		checks := map[string]string{}
		ready := true

		if db != nil {
			if sqlDB, err := db.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				checks["database"] = "unreachable"
				ready = false
			} else {
				checks["database"] = "ok"
			}
		}

		// Redis is optional; an outage degrades rate limiting and resync
		// markers but does not make the service unready.
		if redis != nil {
			if err := redis.HealthCheck(c.Request.Context()); err != nil {
				checks["redis"] = "unreachable"
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		resp := HealthResponse{Status: "ready", Timestamp: time.Now().UTC(), Checks: checks}
		if !ready {
			status = http.StatusServiceUnavailable
			resp.Status = "not ready"
		}
		c.JSON(status, resp)
	})
}
