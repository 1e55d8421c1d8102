package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole must be chained after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...user.Role) gin.HandlerFunc {
	allowed := user.NewRoleSet(roles...)

	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)

		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		if err := auth.Authorize(id, allowed); err != nil {
			slog.Default().InfoContext(c.Request.Context(), "access_denied",
				"user_id", id.UserID, "role", string(id.Role), "allowed", allowed.String(), "route", c.FullPath())

			abortJSON(c, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
			return
		}
		c.Next()
	}
}
