package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// RequireRole admits only principals of the given role. It must run after
// Authenticate.
func RequireRole(role model.Role) gin.HandlerFunc {
	denied := response.ErrForbidden
	switch role {
	case model.RoleStudent:
		denied = response.ErrStudentAccessOnly
	case model.RoleAdmin:
		denied = response.ErrAdminAccessOnly
	}

	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if p.Role() != role {
			response.AbortFail(c, http.StatusForbidden, denied)
			return
		}
		c.Next()
	}
}
