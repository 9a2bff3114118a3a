package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/services"
)

// PublicBookingHandler serves the unauthenticated booking pages reached
// through emailed token links.
type PublicBookingHandler struct {
	bookingService services.IBookingService
}

// NewPublicBookingHandler creates a new PublicBookingHandler.
func NewPublicBookingHandler(bookingService services.IBookingService) *PublicBookingHandler {
	return &PublicBookingHandler{bookingService: bookingService}
}

// GetBooking handles GET /public/booking/:token and shows the slot the
// token offers.
func (h *PublicBookingHandler) GetBooking(c *gin.Context) {
	token, err := h.bookingService.GetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot":       token.Slot,
		"expires_at": token.ExpiresAt,
	})
}

// ConfirmBooking handles POST /public/booking/:token/confirm.
func (h *PublicBookingHandler) ConfirmBooking(c *gin.Context) {
	appointment, err := h.bookingService.Confirm(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appointment})
}
