package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stms-api/internal/models"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
)

// RequireRoles admits callers whose token carries one of roles. Finer checks,
// such as a student opening only their own report, happen in the services
// where portal uids can be resolved.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			abort(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this report"))
			return
		}
		c.Next()
	}
}
