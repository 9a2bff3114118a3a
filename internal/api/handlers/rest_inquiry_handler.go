package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

// RestInquiryHandler handles REST requests for inquiries and their
// workflow operations.
type RestInquiryHandler struct {
	inquiryService  services.IInquiryService
	workflowService services.IWorkflowService
	bookingService  services.IBookingService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService, workflowService services.IWorkflowService, bookingService services.IBookingService) *RestInquiryHandler {
	return &RestInquiryHandler{
		inquiryService:  inquiryService,
		workflowService: workflowService,
		bookingService:  bookingService,
	}
}

// CreateInquiry handles POST /v1/inquiries (manual entry by a manager).
func (h *RestInquiryHandler) CreateInquiry(c *gin.Context) {
	var req struct {
		PropertyID          string                 `json:"property_id" binding:"required"`
		TenantEmail         string                 `json:"tenant_email" binding:"required"`
		ProspectiveTenantID string                 `json:"prospective_tenant_id"`
		Message             string                 `json:"message"`
		SourceType          string                 `json:"source_type"`
		PlatformID          string                 `json:"platform_id"`
		ExternalInquiryID   string                 `json:"external_inquiry_id"`
		SourceMetadata      map[string]interface{} `json:"source_metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "property_id and tenant_email are required"})
		return
	}

	propertyID, err := utils.ParseSixID(req.PropertyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	sourceType := models.InquirySource(req.SourceType)
	if req.SourceType == "" {
		sourceType = models.SourceManual
	}

	inquiry, err := h.inquiryService.CreateInquiry(c.Request.Context(), services.CreateInquiryParams{
		PropertyID:          propertyID,
		PlatformID:          req.PlatformID,
		ExternalInquiryID:   req.ExternalInquiryID,
		ProspectiveTenantID: req.ProspectiveTenantID,
		TenantEmail:         req.TenantEmail,
		Message:             req.Message,
		SourceType:          sourceType,
		SourceMetadata:      req.SourceMetadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

// ListInquiries handles GET /v1/inquiries
func (h *RestInquiryHandler) ListInquiries(c *gin.Context) {
	var propertyID *utils.SixID
	if raw := c.Query("property_id"); raw != "" {
		id, err := utils.ParseSixID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
			return
		}
		propertyID = &id
	}

	var status *models.InquiryStatus
	if raw := c.Query("status"); raw != "" {
		s := models.InquiryStatus(raw)
		status = &s
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	inquiries, err := h.inquiryService.ListInquiries(c.Request.Context(), propertyID, status, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inquiries})
}

// GetInquiry handles GET /v1/inquiries/:id
func (h *RestInquiryHandler) GetInquiry(c *gin.Context) {
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	inquiry, err := h.inquiryService.FindInquiryByID(c.Request.Context(), inquiryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// SubmitAnswers handles POST /v1/inquiries/:id/answers. Partial maps are
// stored as they arrive; qualification runs once every question has an
// answer.
func (h *RestInquiryHandler) SubmitAnswers(c *gin.Context) {
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Answers map[string]interface{} `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answers is required"})
		return
	}

	inquiry, err := h.workflowService.SubmitAnswers(c.Request.Context(), inquiryID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// Override handles POST /v1/inquiries/:id/override
func (h *RestInquiryHandler) Override(c *gin.Context) {
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	override := workflow.OverrideType(req.Action)
	if !override.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown override action"})
		return
	}

	inquiry, err := h.workflowService.Override(c.Request.Context(), inquiryID, override)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// CompleteAppointment handles POST /v1/inquiries/:id/complete
func (h *RestInquiryHandler) CompleteAppointment(c *gin.Context) {
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	inquiry, err := h.workflowService.CompleteAppointment(c.Request.Context(), inquiryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// AddNote handles POST /v1/inquiries/:id/notes
func (h *RestInquiryHandler) AddNote(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	inquiry, err := h.inquiryService.AddNote(c.Request.Context(), inquiryID, managerID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// ListEvents handles GET /v1/inquiries/:id/events
func (h *RestInquiryHandler) ListEvents(c *gin.Context) {
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	events, err := h.workflowService.ListEvents(c.Request.Context(), inquiryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

// IssueOffers handles POST /v1/inquiries/:id/offers and sends a fresh
// batch of booking links to the prospect.
func (h *RestInquiryHandler) IssueOffers(c *gin.Context) {
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		AppointmentType string `json:"appointment_type" binding:"required"`
		Duration        int    `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment_type is required"})
		return
	}

	tokens, err := h.bookingService.IssueOffers(c.Request.Context(), inquiryID, models.AppointmentType(req.AppointmentType), req.Duration)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": tokens})
}
