package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/mediahost/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts API key management under /api-keys. The group must
// already be behind AuthMiddleware.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	keys := router.Group("/api-keys")
	{
		keys.POST("", handler.createKey)
		keys.DELETE("/:keyID", handler.revokeKey)
	}
}

type httpHandler struct {
	service *Service
}

type apiKeyResponse struct {
	ID        string    `json:"id"`
	Prefix    string    `json:"prefix"`
	Key       string    `json:"key"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *httpHandler) createKey(c *gin.Context) {
	userID, user, ok := RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Keys inherit the caller's admin claim and never escalate it.
	issued, err := h.service.CreateAPIKey(c.Request.Context(), userID, user.IsAdmin)
	if err != nil {
		logger.FromContext(c).Error("create api key", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, apiKeyResponse{
		ID:        issued.Key.ID.String(),
		Prefix:    issued.Key.Prefix,
		Key:       issued.Secret,
		IsAdmin:   issued.Key.IsAdmin,
		CreatedAt: issued.Key.CreatedAt,
	})
}

func (h *httpHandler) revokeKey(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	keyID, err := uuid.Parse(c.Param("keyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	if err := h.service.RevokeAPIKey(c.Request.Context(), userID, keyID); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "api key not found"})
			return
		}
		logger.FromContext(c).Error("revoke api key", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
