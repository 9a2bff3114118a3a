package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
)

// writeError maps service errors onto HTTP statuses. Typed errors carry
// their message through; anything unrecognized becomes an opaque 500.
func writeError(c *gin.Context, err error) {
	var validationErr *apperr.ValidationError
	var configErr *apperr.ConfigurationError
	var stateErr *apperr.StateError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
	case errors.As(err, &configErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": configErr.Reason})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          stateErr.Error(),
			"current_status": stateErr.CurrentStatus,
		})
	case errors.Is(err, apperr.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrTokenAlreadyConsumed),
		errors.Is(err, apperr.ErrSlotNoLongerOpen),
		errors.Is(err, apperr.ErrConcurrencyConflict),
		errors.Is(err, services.ErrSlotLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
