package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/api/handlers"
	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

func inquiryRouter(inquirySvc *MockInquiryService, workflowSvc *MockWorkflowService, bookingSvc *MockBookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestInquiryHandler(inquirySvc, workflowSvc, bookingSvc)
	r := gin.New()
	r.POST("/v1/inquiries", handler.CreateInquiry)
	r.GET("/v1/inquiries/:id", handler.GetInquiry)
	r.POST("/v1/inquiries/:id/answers", handler.SubmitAnswers)
	r.POST("/v1/inquiries/:id/override", handler.Override)
	r.POST("/v1/inquiries/:id/offers", handler.IssueOffers)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRestInquiryHandler_CreateInquiry(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	r := inquiryRouter(mockInquirySvc, new(MockWorkflowService), new(MockBookingService))

	propertyID := utils.NewSixID()
	created := &models.Inquiry{
		ID:          utils.NewSixID(),
		PropertyID:  propertyID,
		TenantEmail: "prospect@example.com",
		Status:      models.StatusQuestionnaireSent,
		SourceType:  models.SourceManual,
	}
	mockInquirySvc.On("CreateInquiry", mock.Anything, mock.MatchedBy(func(p services.CreateInquiryParams) bool {
		return p.PropertyID == propertyID && p.SourceType == models.SourceManual
	})).Return(created, nil)

	w := postJSON(r, "/v1/inquiries", gin.H{
		"property_id":  propertyID.String(),
		"tenant_email": "prospect@example.com",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody models.Inquiry
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, created.ID, respBody.ID)
	mockInquirySvc.AssertExpectations(t)

	// Missing required fields
	w = postJSON(r, "/v1/inquiries", gin.H{"tenant_email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed property ID
	w = postJSON(r, "/v1/inquiries", gin.H{"property_id": "???", "tenant_email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestInquiryHandler_GetInquiry_NotFound(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	r := inquiryRouter(mockInquirySvc, new(MockWorkflowService), new(MockBookingService))

	inquiryID := utils.NewSixID()
	mockInquirySvc.On("FindInquiryByID", mock.Anything, inquiryID).Return(nil, mongo.ErrNoDocuments)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/inquiries/"+inquiryID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockInquirySvc.AssertExpectations(t)
}

func TestRestInquiryHandler_SubmitAnswers(t *testing.T) {
	mockWorkflowSvc := new(MockWorkflowService)
	r := inquiryRouter(new(MockInquiryService), mockWorkflowSvc, new(MockBookingService))

	inquiryID := utils.NewSixID()
	questionID := utils.NewSixID().String()
	updated := &models.Inquiry{ID: inquiryID, Status: models.StatusQualified}
	mockWorkflowSvc.On("SubmitAnswers", mock.Anything, inquiryID,
		map[string]interface{}{questionID: float64(5000)}).Return(updated, nil)

	w := postJSON(r, "/v1/inquiries/"+inquiryID.String()+"/answers", gin.H{
		"answers": gin.H{questionID: 5000},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	mockWorkflowSvc.AssertExpectations(t)

	w = postJSON(r, "/v1/inquiries/"+inquiryID.String()+"/answers", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestInquiryHandler_Override(t *testing.T) {
	mockWorkflowSvc := new(MockWorkflowService)
	r := inquiryRouter(new(MockInquiryService), mockWorkflowSvc, new(MockBookingService))

	inquiryID := utils.NewSixID()
	updated := &models.Inquiry{ID: inquiryID, Status: models.StatusQualified}
	mockWorkflowSvc.On("Override", mock.Anything, inquiryID, workflow.OverrideQualify).Return(updated, nil)

	w := postJSON(r, "/v1/inquiries/"+inquiryID.String()+"/override", gin.H{"action": "qualify"})
	assert.Equal(t, http.StatusOK, w.Code)
	mockWorkflowSvc.AssertExpectations(t)

	// Unknown actions never reach the service.
	w = postJSON(r, "/v1/inquiries/"+inquiryID.String()+"/override", gin.H{"action": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestInquiryHandler_Override_StateConflict(t *testing.T) {
	mockWorkflowSvc := new(MockWorkflowService)
	r := inquiryRouter(new(MockInquiryService), mockWorkflowSvc, new(MockBookingService))

	inquiryID := utils.NewSixID()
	stateErr := &apperr.StateError{CurrentStatus: "new", Attempted: "qualify"}
	mockWorkflowSvc.On("Override", mock.Anything, inquiryID, workflow.OverrideQualify).Return(nil, stateErr)

	w := postJSON(r, "/v1/inquiries/"+inquiryID.String()+"/override", gin.H{"action": "qualify"})
	assert.Equal(t, http.StatusConflict, w.Code)

	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "new", respBody["current_status"])
	mockWorkflowSvc.AssertExpectations(t)
}

func TestRestInquiryHandler_IssueOffers(t *testing.T) {
	mockBookingSvc := new(MockBookingService)
	r := inquiryRouter(new(MockInquiryService), new(MockWorkflowService), mockBookingSvc)

	inquiryID := utils.NewSixID()
	tokens := []models.BookingToken{
		{Token: "tok-1", InquiryID: inquiryID},
		{Token: "tok-2", InquiryID: inquiryID},
	}
	mockBookingSvc.On("IssueOffers", mock.Anything, inquiryID, models.AppointmentTour, 30).Return(tokens, nil)

	w := postJSON(r, "/v1/inquiries/"+inquiryID.String()+"/offers", gin.H{
		"appointment_type": "tour",
		"duration":         30,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var respBody struct {
		Data []models.BookingToken `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Len(t, respBody.Data, 2)
	mockBookingSvc.AssertExpectations(t)

	// Issuing against an unqualified inquiry surfaces the state conflict.
	blocked := utils.NewSixID()
	mockBookingSvc.On("IssueOffers", mock.Anything, blocked, models.AppointmentTour, 0).
		Return(nil, &apperr.StateError{CurrentStatus: "disqualified", Attempted: "issue_offers"})
	w = postJSON(r, "/v1/inquiries/"+blocked.String()+"/offers", gin.H{"appointment_type": "tour"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
