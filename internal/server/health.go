package server

import (
	"context"
	"net/http"
	"time"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": "postgres",
					"error":     err.Error(),
				})
				return
			}
		}

		providers := []storage.Provider{}
		if deps.Providers != nil {
			providers = append(providers, deps.Providers.AvailableProviders()...)
		}
		if len(providers) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"component": "storage",
				"error":     "no storage provider configured",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": providers})
	})
}
