package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/gahimbaref/Rentema-sub002/internal/api/middleware"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/storage"
	"github.com/gahimbaref/Rentema-sub002/internal/tasks"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// IAsynqClient is the slice of asynq.Client handlers need, kept as an
// interface so tests can mock enqueueing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestPropertyHandler handles REST requests for properties.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
	storageService  storage.IS3Storage
	taskClient      IAsynqClient
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(propertyService services.IPropertyService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestPropertyHandler {
	return &RestPropertyHandler{
		propertyService: propertyService,
		storageService:  storageService,
		taskClient:      taskClient,
	}
}

// managerIDFromContext reads the authenticated manager ID set by the auth
// middleware.
func managerIDFromContext(c *gin.Context) (utils.SixID, bool) {
	raw, exists := c.Get(middleware.ContextKeyManagerID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return utils.SixID{}, false
	}
	id, err := utils.ParseSixID(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return utils.SixID{}, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (utils.SixID, bool) {
	id, err := utils.ParseSixID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return utils.SixID{}, false
	}
	return id, true
}

// CreateProperty handles POST /v1/properties
func (h *RestPropertyHandler) CreateProperty(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Name    string        `json:"name" binding:"required"`
		Address string        `json:"address"`
		Rent    *models.Money `json:"rent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	property, err := h.propertyService.CreateProperty(c.Request.Context(), managerID, req.Name, req.Address, req.Rent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// ListProperties handles GET /v1/properties
func (h *RestPropertyHandler) ListProperties(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}

	includeArchived := c.Query("include_archived") == "true"
	properties, err := h.propertyService.ListProperties(c.Request.Context(), managerID, includeArchived)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": properties})
}

// GetProperty handles GET /v1/properties/:id
func (h *RestPropertyHandler) GetProperty(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	property, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// UpdateProperty handles PATCH /v1/properties/:id
func (h *RestPropertyHandler) UpdateProperty(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, err := h.propertyService.UpdateProperty(c.Request.Context(), propertyID, managerID, updates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// ArchiveProperty handles POST /v1/properties/:id/archive
func (h *RestPropertyHandler) ArchiveProperty(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.propertyService.ArchiveProperty(c.Request.Context(), propertyID, managerID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequestPhotoUpload handles POST /v1/properties/:id/photos and returns a
// pre-signed S3 PUT URL.
func (h *RestPropertyHandler) RequestPhotoUpload(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename and content_type are required"})
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), managerID.String(), propertyID.String(), req.Filename, req.ContentType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "s3_key": key})
}

// CompletePhotoUpload handles POST /v1/properties/:id/photos/complete and
// enqueues the resize task once the client has uploaded to S3.
func (h *RestPropertyHandler) CompletePhotoUpload(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		S3Key string `json:"s3_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "s3_key is required"})
		return
	}

	payload, err := json.Marshal(tasks.PhotoTaskPayload{
		S3Key:      req.S3Key,
		PropertyID: propertyID.String(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), asynq.NewTask(tasks.TypePhotoProcess, payload), asynq.Queue("low")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
