package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gahimbaref/Rentema-sub002/internal/api/handlers"
	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

func bookingRouter(mockBookingSvc *MockBookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewPublicBookingHandler(mockBookingSvc)
	r := gin.New()
	r.GET("/public/booking/:token", handler.GetBooking)
	r.POST("/public/booking/:token/confirm", handler.ConfirmBooking)
	return r
}

func TestPublicBookingHandler_GetBooking_Success(t *testing.T) {
	mockBookingSvc := new(MockBookingService)
	r := bookingRouter(mockBookingSvc)

	token := &models.BookingToken{
		Token: "tok-123",
		Slot: models.OfferedSlot{
			Date:            "2026-09-07",
			StartTime:       "10:00",
			AppointmentType: models.AppointmentTour,
			Duration:        30,
		},
	}
	mockBookingSvc.On("GetToken", mock.Anything, "tok-123").Return(token, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/public/booking/tok-123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	slot := respBody["slot"].(map[string]interface{})
	assert.Equal(t, "2026-09-07", slot["date"])
	assert.Equal(t, "10:00", slot["start_time"])
	mockBookingSvc.AssertExpectations(t)
}

func TestPublicBookingHandler_GetBooking_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperr.ErrTokenNotFound, http.StatusNotFound},
		{"expired", apperr.ErrTokenExpired, http.StatusGone},
		{"consumed", apperr.ErrTokenAlreadyConsumed, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockBookingSvc := new(MockBookingService)
			r := bookingRouter(mockBookingSvc)
			mockBookingSvc.On("GetToken", mock.Anything, "tok-x").Return(nil, tc.err)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/public/booking/tok-x", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			mockBookingSvc.AssertExpectations(t)
		})
	}
}

func TestPublicBookingHandler_ConfirmBooking_Success(t *testing.T) {
	mockBookingSvc := new(MockBookingService)
	r := bookingRouter(mockBookingSvc)

	appt := &models.Appointment{
		ID:        utils.NewSixID(),
		InquiryID: utils.NewSixID(),
		Type:      models.AppointmentTour,
		Status:    models.AppointmentConfirmed,
		Duration:  30,
	}
	mockBookingSvc.On("Confirm", mock.Anything, "tok-123").Return(appt, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/public/booking/tok-123/confirm", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	got := respBody["appointment"].(map[string]interface{})
	assert.Equal(t, appt.ID.String(), got["id"])
	mockBookingSvc.AssertExpectations(t)
}

func TestPublicBookingHandler_ConfirmBooking_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"slot gone", apperr.ErrSlotNoLongerOpen, http.StatusConflict},
		{"lost race", apperr.ErrConcurrencyConflict, http.StatusConflict},
		{"expired", apperr.ErrTokenExpired, http.StatusGone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockBookingSvc := new(MockBookingService)
			r := bookingRouter(mockBookingSvc)
			mockBookingSvc.On("Confirm", mock.Anything, "tok-x").Return(nil, tc.err)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/public/booking/tok-x/confirm", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			mockBookingSvc.AssertExpectations(t)
		})
	}
}
