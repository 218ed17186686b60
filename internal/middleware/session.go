package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// HeaderDeviceFingerprint carries the client's current device fingerprint.
const HeaderDeviceFingerprint = "X-Device-Fingerprint"

// CheckSingleDeviceSession validates the JWT's JTI against the active login
// in Redis. A newer login elsewhere invalidates older tokens.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		student, ok := GetStudent(c)
		if !ok {
			// Only enforced for student tokens.
			c.Next()
			return
		}

		if err := authService.ValidateStudentSession(c.Request.Context(), student); err != nil {
			if errors.Is(err, service.ErrSessionInvalidated) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Next()
	}
}

// VerifyDevice rejects student requests whose X-Device-Fingerprint differs
// from the fingerprint bound at registration. The mismatch is written to the
// security log.
func VerifyDevice(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		student, ok := GetStudent(c)
		if !ok {
			c.Next()
			return
		}

		fingerprint := c.GetHeader(HeaderDeviceFingerprint)
		if err := authService.VerifyDevice(c.Request.Context(), student, fingerprint); err != nil {
			response.AbortFail(c, http.StatusForbidden, response.ErrDeviceMismatch)
			return
		}
		c.Next()
	}
}
