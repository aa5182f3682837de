package quota

import (
	"errors"
	"net/http"

	"github.com/abduss/mediahost/internal/logger"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type providerLister interface {
	AvailableProviders() []storage.Provider
}

// RegisterRoutes mounts the provider listing and usage endpoints.
func RegisterRoutes(group *gin.RouterGroup, tracker *Tracker, providers providerLister) {
	handler := &httpHandler{tracker: tracker, providers: providers}
	group.GET("/providers", handler.listProviders)
	group.GET("/providers/:provider/usage", handler.providerUsage)
}

// RegisterAdminRoutes mounts quota management under an admin-only group.
func RegisterAdminRoutes(group *gin.RouterGroup, tracker *Tracker) {
	handler := &httpHandler{tracker: tracker}
	group.PUT("/providers/:provider/quota", handler.setQuota)
}

type httpHandler struct {
	tracker   *Tracker
	providers providerLister
}

func (h *httpHandler) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.providers.AvailableProviders()})
}

func (h *httpHandler) providerUsage(c *gin.Context) {
	provider, err := storage.ParseProvider(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	usage, err := h.tracker.ProviderUsage(c.Request.Context(), provider)
	if err != nil {
		logger.FromContext(c).Error("provider usage", zap.String("provider", string(provider)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

type setQuotaRequest struct {
	QuotaBytes *int64 `json:"quotaBytes"`
}

func (h *httpHandler) setQuota(c *gin.Context) {
	provider, err := storage.ParseProvider(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	var req setQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.tracker.SetQuota(c.Request.Context(), provider, req.QuotaBytes); err != nil {
		if errors.Is(err, ErrInvalidQuota) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.FromContext(c).Error("set quota", zap.String("provider", string(provider)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update quota"})
		return
	}
	c.Status(http.StatusNoContent)
}
