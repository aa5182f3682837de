package project

import (
	"errors"
	"net/http"

	"github.com/abduss/mediahost/internal/auth"
	"github.com/abduss/mediahost/internal/logger"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts project endpoints onto the router.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/projects", handler.createProject)
	group.GET("/projects", handler.listProjects)
	group.GET("/projects/:projectID", handler.getProject)
	group.DELETE("/projects/:projectID", handler.deleteProject)
	group.GET("/projects/:projectID/usage", handler.projectUsage)
}

type httpHandler struct {
	service *Service
}

type createProjectRequest struct {
	Name     string `json:"name" binding:"required"`
	Provider string `json:"provider" binding:"required"`
}

func (h *httpHandler) createProject(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider, err := storage.ParseProvider(req.Provider)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	p, err := h.service.CreateProject(c.Request.Context(), userID, req.Name, provider)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrProviderUnavailable):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "PROVIDER_NOT_CONFIGURED"})
		case errors.Is(err, ErrProjectNameExists):
			c.JSON(http.StatusConflict, gin.H{"error": "project name already exists"})
		default:
			logger.FromContext(c).Error("create project", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		}
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *httpHandler) listProjects(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	projects, err := h.service.ListProjects(c.Request.Context(), userID)
	if err != nil {
		logger.FromContext(c).Error("list projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}
	if projects == nil {
		projects = []Project{}
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *httpHandler) getProject(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}

	p, err := h.service.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		h.writeError(c, "get project", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *httpHandler) deleteProject(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProject(c.Request.Context(), userID, projectID); err != nil {
		h.writeError(c, "delete project", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) projectUsage(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}

	usage, err := h.service.Usage(c.Request.Context(), userID, projectID)
	if err != nil {
		h.writeError(c, "project usage", err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *httpHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found", "code": "NOT_FOUND"})
	case errors.Is(err, storage.ErrProviderNotConfigured):
		logger.FromContext(c).Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage provider not configured", "code": "PROVIDER_NOT_CONFIGURED"})
	default:
		logger.FromContext(c).Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func requireProject(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	projectID, err := uuid.Parse(c.Param("projectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, projectID, true
}
