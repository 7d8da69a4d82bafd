package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireStaff admits teachers, directors and superadmins.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleTeacher, models.RoleDirector, models.RoleSuperAdmin)
}

// RequireManagement admits directors and superadmins.
func RequireManagement() gin.HandlerFunc {
	return RequireRoles(models.RoleDirector, models.RoleSuperAdmin)
}
