package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/scheduling"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

// RestScheduleHandler handles availability schedules and appointments for
// the authenticated manager.
type RestScheduleHandler struct {
	availabilityService services.IAvailabilityService
	appointmentService  services.IAppointmentService
	workflowService     services.IWorkflowService
}

// NewRestScheduleHandler creates a new RestScheduleHandler.
func NewRestScheduleHandler(availabilityService services.IAvailabilityService, appointmentService services.IAppointmentService, workflowService services.IWorkflowService) *RestScheduleHandler {
	return &RestScheduleHandler{
		availabilityService: availabilityService,
		appointmentService:  appointmentService,
		workflowService:     workflowService,
	}
}

// UpsertSchedule handles PUT /v1/availability/:type
func (h *RestScheduleHandler) UpsertSchedule(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	scheduleType := models.AppointmentType(c.Param("type"))
	if !scheduleType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown schedule type"})
		return
	}

	var req struct {
		RecurringWeekly map[string][]models.TimeBlock `json:"recurring_weekly"`
		BlockedDates    []models.DateRange            `json:"blocked_dates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	schedule, err := h.availabilityService.UpsertSchedule(c.Request.Context(), managerID, scheduleType, req.RecurringWeekly, req.BlockedDates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// GetSchedule handles GET /v1/availability/:type
func (h *RestScheduleHandler) GetSchedule(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	scheduleType := models.AppointmentType(c.Param("type"))
	if !scheduleType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown schedule type"})
		return
	}

	schedule, err := h.availabilityService.GetSchedule(c.Request.Context(), managerID, scheduleType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// PreviewSlots handles GET /v1/availability/:type/slots?date=2006-01-02
// and lets the manager see what prospects would be offered.
func (h *RestScheduleHandler) PreviewSlots(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	scheduleType := models.AppointmentType(c.Param("type"))
	if !scheduleType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown schedule type"})
		return
	}

	date := c.Query("date")
	if _, err := time.Parse(scheduling.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	duration, err := strconv.Atoi(c.DefaultQuery("duration", "0"))
	if err != nil || duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid duration"})
		return
	}

	slots, err := h.availabilityService.SlotsForDate(c.Request.Context(), managerID, date, scheduleType, duration, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}

	starts := make([]string, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.Format("15:04"))
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "slots": starts})
}

// ListAppointments handles GET /v1/appointments
func (h *RestScheduleHandler) ListAppointments(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		to = &t
	}

	appointments, err := h.appointmentService.List(c.Request.Context(), managerID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": appointments})
}

// CancelAppointment handles POST /v1/appointments/:id/cancel. Cancelling
// through the inquiry override keeps the workflow status in step; this
// endpoint is the direct calendar action and drives the same override.
func (h *RestScheduleHandler) CancelAppointment(c *gin.Context) {
	managerID, ok := managerIDFromContext(c)
	if !ok {
		return
	}
	appointmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	appt, err := h.appointmentService.FindByID(c.Request.Context(), appointmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	if appt.ManagerID != managerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Appointment belongs to another manager"})
		return
	}

	if _, err := h.workflowService.Override(c.Request.Context(), appt.InquiryID, workflow.OverrideCancelAppointment); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
