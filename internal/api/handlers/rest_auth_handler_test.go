package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gahimbaref/Rentema-sub002/internal/api/handlers"
	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

func authRouter(mockManagerSvc *MockManagerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestAuthHandler(mockManagerSvc)
	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)
	r.POST("/v1/admin/managers", handler.CreateManager)
	return r
}

func TestRestAuthHandler_Login_Success(t *testing.T) {
	mockManagerSvc := new(MockManagerService)
	r := authRouter(mockManagerSvc)

	manager := &models.Manager{
		Base:  models.Base{ID: utils.NewSixID()},
		Email: "ana@example.com",
		Name:  "Ana",
	}
	mockManagerSvc.On("Login", mock.Anything, "ana@example.com", "s3cret-pass").
		Return("signed.jwt.token", manager, nil)

	w := postJSON(r, "/v1/auth/login", gin.H{"email": "ana@example.com", "password": "s3cret-pass"})

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "signed.jwt.token", respBody["token"])
	got := respBody["manager"].(map[string]interface{})
	assert.Equal(t, "ana@example.com", got["email"])
	// The password hash never leaves the server.
	_, leaked := got["password_hash"]
	assert.False(t, leaked)
	mockManagerSvc.AssertExpectations(t)
}

func TestRestAuthHandler_Login_BadCredentials(t *testing.T) {
	mockManagerSvc := new(MockManagerService)
	r := authRouter(mockManagerSvc)

	mockManagerSvc.On("Login", mock.Anything, "ana@example.com", "wrong").
		Return("", nil, services.ErrInvalidCredentials)

	w := postJSON(r, "/v1/auth/login", gin.H{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockManagerSvc.AssertExpectations(t)

	w = postJSON(r, "/v1/auth/login", gin.H{"email": "ana@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestAuthHandler_CreateManager(t *testing.T) {
	mockManagerSvc := new(MockManagerService)
	r := authRouter(mockManagerSvc)

	manager := &models.Manager{
		Base:  models.Base{ID: utils.NewSixID()},
		Email: "new@example.com",
		Name:  "New Manager",
	}
	mockManagerSvc.On("CreateManager", mock.Anything, "new@example.com", "longenough", "New Manager", false).
		Return(manager, nil)

	w := postJSON(r, "/v1/admin/managers", gin.H{
		"email":    "new@example.com",
		"password": "longenough",
		"name":     "New Manager",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	mockManagerSvc.AssertExpectations(t)

	// Duplicate email surfaces as a validation failure.
	mockManagerSvc.On("CreateManager", mock.Anything, "dup@example.com", "longenough", "", false).
		Return(nil, apperr.NewValidation("email dup@example.com is already registered"))
	w = postJSON(r, "/v1/admin/managers", gin.H{"email": "dup@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
