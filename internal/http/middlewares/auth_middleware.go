package middlewares

import (
	"errors"
	"net/http"

	"github.com/geocoder89/userhub/internal/actorctx"
	"github.com/geocoder89/userhub/internal/auth"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	jwt auth.Verifier
}

func NewAuthMiddleware(jwt auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth rejects requests without a valid bearer token and stashes the
// verified identity on both the gin context and the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.Authenticate(m.jwt, c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, auth.ErrMissingCredentials) {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			abortJSON(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired access token")
			return
		}

		c.Set(CtxIdentity, id)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

// IdentityFromContext returns what RequireAuth stored, so handlers don't need the key.
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func abortJSON(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": reqID,
		},
	})
}
