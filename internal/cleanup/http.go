package cleanup

import (
	"net/http"

	"github.com/abduss/mediahost/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterAdminRoutes mounts the operator trigger. The group must require the admin claim.
func RegisterAdminRoutes(router *gin.RouterGroup, service *Service) {
	router.POST("/cleanup", func(c *gin.Context) {
		report, err := service.RunOnce(c.Request.Context())
		if err != nil {
			logger.FromContext(c).Error("manual cleanup", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"pending":    report.Pending,
			"failed":     report.Failed,
			"durationMs": report.Duration.Milliseconds(),
		})
	})
}
