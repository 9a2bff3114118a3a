package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/services"
)

// RestAuthHandler handles manager login and account administration.
type RestAuthHandler struct {
	managerService services.IManagerService
}

// NewRestAuthHandler creates a new RestAuthHandler.
func NewRestAuthHandler(managerService services.IManagerService) *RestAuthHandler {
	return &RestAuthHandler{managerService: managerService}
}

// Login handles POST /v1/auth/login
func (h *RestAuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, manager, err := h.managerService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "manager": manager})
}

// CreateManager handles POST /v1/admin/managers
func (h *RestAuthHandler) CreateManager(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	manager, err := h.managerService.CreateManager(c.Request.Context(), req.Email, req.Password, req.Name, req.IsAdmin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, manager)
}
