package server

import (
	"context"

	"github.com/abduss/mediahost/internal/auth"
	"github.com/abduss/mediahost/internal/cleanup"
	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/file"
	"github.com/abduss/mediahost/internal/logger"
	"github.com/abduss/mediahost/internal/metrics"
	"github.com/abduss/mediahost/internal/project"
	"github.com/abduss/mediahost/internal/quota"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/gin-gonic/gin"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderRegistry reports which storage providers are usable.
type ProviderRegistry interface {
	AvailableProviders() []storage.Provider
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config         config.Config
	DB             Pinger
	Providers      ProviderRegistry
	AuthService    *auth.Service
	ProjectService *project.Service
	FileService    *file.Service
	QuotaTracker   *quota.Tracker
	CleanupService *cleanup.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService == nil {
		return router
	}

	protected := api.Group("/")
	protected.Use(auth.AuthMiddleware(deps.AuthService))
	auth.RegisterRoutes(protected, deps.AuthService)

	if deps.ProjectService != nil {
		project.RegisterRoutes(protected, deps.ProjectService)
	}
	if deps.FileService != nil {
		file.RegisterRoutes(protected, deps.FileService)
	}
	if deps.QuotaTracker != nil && deps.Providers != nil {
		quota.RegisterRoutes(protected, deps.QuotaTracker, deps.Providers)
	}

	admin := protected.Group("/admin")
	admin.Use(auth.RequireAdmin())
	if deps.QuotaTracker != nil {
		quota.RegisterAdminRoutes(admin, deps.QuotaTracker)
	}
	if deps.CleanupService != nil {
		cleanup.RegisterAdminRoutes(admin, deps.CleanupService)
	}

	return router
}
