package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gahimbaref/Rentema-sub002/internal/api/handlers"
	"github.com/gahimbaref/Rentema-sub002/internal/api/middleware"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

func scheduleRouter(managerID utils.SixID, availabilitySvc *MockAvailabilityService, appointmentSvc *MockAppointmentService, workflowSvc *MockWorkflowService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestScheduleHandler(availabilitySvc, appointmentSvc, workflowSvc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyManagerID, managerID.String())
	})
	r.PUT("/v1/availability/:type", handler.UpsertSchedule)
	r.GET("/v1/availability/:type/slots", handler.PreviewSlots)
	r.GET("/v1/appointments", handler.ListAppointments)
	r.POST("/v1/appointments/:id/cancel", handler.CancelAppointment)
	return r
}

func TestRestScheduleHandler_UpsertSchedule(t *testing.T) {
	managerID := utils.NewSixID()
	mockAvailabilitySvc := new(MockAvailabilityService)
	r := scheduleRouter(managerID, mockAvailabilitySvc, new(MockAppointmentService), new(MockWorkflowService))

	weekly := map[string][]models.TimeBlock{
		"monday": {{StartTime: "09:00", EndTime: "12:00"}},
	}
	schedule := &models.AvailabilitySchedule{
		ID:              utils.NewSixID(),
		ManagerID:       managerID,
		ScheduleType:    models.AppointmentTour,
		RecurringWeekly: weekly,
	}
	mockAvailabilitySvc.On("UpsertSchedule", mock.Anything, managerID, models.AppointmentTour, weekly, []models.DateRange(nil)).
		Return(schedule, nil)

	w := putJSON(r, "/v1/availability/tour", gin.H{"recurring_weekly": weekly})
	assert.Equal(t, http.StatusOK, w.Code)
	mockAvailabilitySvc.AssertExpectations(t)

	// Unknown types are rejected before the service is consulted.
	w = putJSON(r, "/v1/availability/walkthrough", gin.H{"recurring_weekly": weekly})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func putJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRestScheduleHandler_PreviewSlots(t *testing.T) {
	managerID := utils.NewSixID()
	mockAvailabilitySvc := new(MockAvailabilityService)
	r := scheduleRouter(managerID, mockAvailabilitySvc, new(MockAppointmentService), new(MockWorkflowService))

	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots := []time.Time{day.Add(9 * time.Hour), day.Add(9*time.Hour + 30*time.Minute)}
	mockAvailabilitySvc.On("SlotsForDate", mock.Anything, managerID, "2026-09-07", models.AppointmentTour, 30, mock.Anything).
		Return(slots, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/availability/tour/slots?date=2026-09-07&duration=30", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, []string{"09:00", "09:30"}, respBody.Slots)
	mockAvailabilitySvc.AssertExpectations(t)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/availability/tour/slots?date=next-tuesday", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestScheduleHandler_CancelAppointment(t *testing.T) {
	managerID := utils.NewSixID()
	mockAppointmentSvc := new(MockAppointmentService)
	mockWorkflowSvc := new(MockWorkflowService)
	r := scheduleRouter(managerID, new(MockAvailabilityService), mockAppointmentSvc, mockWorkflowSvc)

	inquiryID := utils.NewSixID()
	appt := &models.Appointment{
		ID:        utils.NewSixID(),
		InquiryID: inquiryID,
		ManagerID: managerID,
		Status:    models.AppointmentConfirmed,
	}
	mockAppointmentSvc.On("FindByID", mock.Anything, appt.ID).Return(appt, nil)
	mockWorkflowSvc.On("Override", mock.Anything, inquiryID, workflow.OverrideCancelAppointment).
		Return(&models.Inquiry{ID: inquiryID, Status: models.StatusCancelled}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/appointments/"+appt.ID.String()+"/cancel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockAppointmentSvc.AssertExpectations(t)
	mockWorkflowSvc.AssertExpectations(t)
}

func TestRestScheduleHandler_CancelAppointment_WrongManager(t *testing.T) {
	managerID := utils.NewSixID()
	mockAppointmentSvc := new(MockAppointmentService)
	r := scheduleRouter(managerID, new(MockAvailabilityService), mockAppointmentSvc, new(MockWorkflowService))

	appt := &models.Appointment{
		ID:        utils.NewSixID(),
		InquiryID: utils.NewSixID(),
		ManagerID: utils.NewSixID(), // someone else's
		Status:    models.AppointmentConfirmed,
	}
	mockAppointmentSvc.On("FindByID", mock.Anything, appt.ID).Return(appt, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/appointments/"+appt.ID.String()+"/cancel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockAppointmentSvc.AssertExpectations(t)
}
