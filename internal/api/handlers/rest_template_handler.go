package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/services"
)

// RestTemplateHandler handles message template customization.
type RestTemplateHandler struct {
	templateService services.ITemplateService
}

// NewRestTemplateHandler creates a new RestTemplateHandler.
func NewRestTemplateHandler(templateService services.ITemplateService) *RestTemplateHandler {
	return &RestTemplateHandler{templateService: templateService}
}

// ListTemplates handles GET /v1/templates
func (h *RestTemplateHandler) ListTemplates(c *gin.Context) {
	locale := c.DefaultQuery("locale", "en-US")
	templates, err := h.templateService.ListTemplates(c.Request.Context(), locale)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templates})
}

// UpdateTemplate handles PUT /v1/templates/:template_id
func (h *RestTemplateHandler) UpdateTemplate(c *gin.Context) {
	var req struct {
		Locale  string `json:"locale"`
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject and body are required"})
		return
	}
	if req.Locale == "" {
		req.Locale = "en-US"
	}

	tmpl, err := h.templateService.UpdateTemplate(c.Request.Context(), c.Param("template_id"), req.Locale, req.Subject, req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}
