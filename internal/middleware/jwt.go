package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const (
	// ContextKeyPrincipal is the Gin context key for the resolved identity.
	ContextKeyPrincipal = "principal"
)

// Authenticate resolves the bearer token into a model.Principal.
// The token comes from the Authorization header, or from ?token= for
// EventSource and WebSocket clients that cannot send headers.
func Authenticate(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		principal, err := authService.ValidateToken(tokenStr)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
				return
			}
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

// GetPrincipal retrieves the identity set by Authenticate.
func GetPrincipal(c *gin.Context) model.Principal {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil
	}
	p, _ := val.(model.Principal)
	return p
}

// GetStudent returns the student principal, if the caller is a student.
func GetStudent(c *gin.Context) (model.StudentPrincipal, bool) {
	p, ok := GetPrincipal(c).(model.StudentPrincipal)
	return p, ok
}

// GetAdmin returns the admin principal, if the caller is an admin.
func GetAdmin(c *gin.Context) (model.AdminPrincipal, bool) {
	p, ok := GetPrincipal(c).(model.AdminPrincipal)
	return p, ok
}
