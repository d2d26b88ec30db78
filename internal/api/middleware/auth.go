package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/session"
)

// PrincipalKey is the gin context key a resolved userID is stored under.
const PrincipalKey = "principal"

// RequireSession resolves the session cookie into a userId principal (C8) and aborts
// with 401 when it is missing or invalid. Every non-auth endpoint in §6 depends on it.
func RequireSession(gateway *session.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(gateway.CookieName())
		if err != nil || cookie == "" {
			writeAuthError(c, apperrors.NewUnauthenticatedError("no session cookie"))
			return
		}
		sess, err := gateway.ResolveCookie(c.Request.Context(), cookie)
		if err != nil {
			writeAuthError(c, err)
			return
		}
		c.Set(PrincipalKey, sess.UserID)
		c.Next()
	}
}

// Principal returns the resolved userId set by RequireSession, or "" if absent.
func Principal(c *gin.Context) string {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

func writeAuthError(c *gin.Context, err error) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":      "unauthenticated",
		"message":    err.Error(),
		"request_id": GetRequestID(c),
	})
	c.Abort()
}
