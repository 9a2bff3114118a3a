package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/captcha"
)

// CaptchaMiddleware requires a valid Turnstile challenge response in the
// X-C-V header. Applied to the public booking confirmation only; token
// links themselves are unguessable.
func CaptchaMiddleware(verifier captcha.IVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		challenge := c.GetHeader("X-C-V")
		verified, err := verifier.Verify(c.Request.Context(), challenge, c.ClientIP())
		if err != nil {
			log.Printf("Error verifying Turnstile challenge: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Captcha verification unavailable"})
			return
		}
		if !verified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Captcha validation required"})
			return
		}
		c.Next()
	}
}
