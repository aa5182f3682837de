package file

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abduss/mediahost/internal/auth"
	"github.com/abduss/mediahost/internal/logger"
	"github.com/abduss/mediahost/internal/media"
	"github.com/abduss/mediahost/internal/project"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts upload and file operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/projects/:projectID/uploads/presign", handler.presign)
	group.POST("/projects/:projectID/uploads/confirm", handler.confirm)
	group.GET("/projects/:projectID/files", handler.listFiles)
	group.GET("/projects/:projectID/files/:fileID", handler.getFile)
	group.DELETE("/projects/:projectID/files/:fileID", handler.deleteFile)
}

type httpHandler struct {
	service *Service
}

type presignRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	FileSize    int64  `json:"fileSize" binding:"required"`
	Width       *int   `json:"width"`
	Height      *int   `json:"height"`
}

type presignResponse struct {
	PresignedURL string      `json:"presignedUrl"`
	ObjectName   string      `json:"objectName"`
	ObjectURL    string      `json:"objectUrl"`
	FileID       uuid.UUID   `json:"fileId"`
	ExpiresAt    string      `json:"expiresAt"`
	Quota        *QuotaState `json:"quota,omitempty"`
}

// VariantRequestBody is the wire form of a variant request.
type VariantRequestBody struct {
	SizeLabel string `json:"sizeLabel"`
	Format    string `json:"format"`
}

type confirmRequest struct {
	FileID      uuid.UUID            `json:"fileId" binding:"required"`
	ObjectName  string               `json:"objectName" binding:"required"`
	FileName    string               `json:"fileName" binding:"required"`
	ContentType string               `json:"contentType" binding:"required"`
	FileSize    int64                `json:"fileSize"`
	Variants    []VariantRequestBody `json:"variants"`
}

// ParseVariantRequests turns wire labels into typed requests once, at the boundary.
func ParseVariantRequests(raw []VariantRequestBody) ([]VariantRequest, error) {
	out := make([]VariantRequest, 0, len(raw))
	var messages []string
	for i, r := range raw {
		size, err := media.ParseSizeSpec(r.SizeLabel)
		if err != nil {
			messages = append(messages, fmt.Sprintf("variants[%d]: %v", i, err))
			continue
		}
		format, err := media.ParseFormat(r.Format)
		if err != nil {
			messages = append(messages, fmt.Sprintf("variants[%d]: %v", i, err))
			continue
		}
		out = append(out, VariantRequest{Size: size, Format: format})
	}
	if len(messages) > 0 {
		return nil, validationError(messages...)
	}
	return out, nil
}

func (h *httpHandler) presign(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILED"})
		return
	}

	result, err := h.service.Presign(c.Request.Context(), userID, projectID, PresignInput{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		Width:       req.Width,
		Height:      req.Height,
	})
	if err != nil {
		writeError(c, "presign upload", err)
		return
	}

	c.JSON(http.StatusCreated, presignResponse{
		PresignedURL: result.PresignedURL,
		ObjectName:   result.ObjectName,
		ObjectURL:    result.ObjectURL,
		FileID:       result.FileID,
		ExpiresAt:    result.ExpiresAt.UTC().Format(time.RFC3339),
		Quota:        result.Quota,
	})
}

func (h *httpHandler) confirm(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILED"})
		return
	}

	variants, err := ParseVariantRequests(req.Variants)
	if err != nil {
		writeError(c, "confirm upload", err)
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), userID, projectID, ConfirmInput{
		FileID:      req.FileID,
		ObjectName:  req.ObjectName,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		Variants:    variants,
	})
	if err != nil {
		writeError(c, "confirm upload", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}

	files, err := h.service.List(c.Request.Context(), userID, projectID)
	if err != nil {
		writeError(c, "list files", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *httpHandler) getFile(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}
	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	f, err := h.service.Get(c.Request.Context(), userID, projectID, fileID)
	if err != nil {
		writeError(c, "get file", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	userID, projectID, ok := requireProject(c)
	if !ok {
		return
	}
	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, projectID, fileID); err != nil {
		writeError(c, "delete file", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, op string, err error) {
	var validationErr *ValidationError
	var quotaErr *QuotaError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "code": "VALIDATION_FAILED", "details": validationErr.Messages})
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": quotaErr.Check.Message, "code": "QUOTA_EXCEEDED", "remaining": quotaErr.Check.Remaining})
	case errors.Is(err, project.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found", "code": "NOT_FOUND"})
	case errors.Is(err, ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found", "code": "NOT_FOUND"})
	case errors.Is(err, ErrContentMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "CONTENT_MISMATCH"})
	case errors.Is(err, ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "code": "FILE_TOO_LARGE"})
	case errors.Is(err, ErrUploadIncomplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "UPLOAD_INCOMPLETE"})
	case errors.Is(err, ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ALREADY_CONFIRMED"})
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
