package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scifind-backend/internal/api/middleware"
)

// AuthHandler binds spec.md §4.8/§6's session endpoints onto C8.
type AuthHandler struct {
	*Core
}

func NewAuthHandler(core *Core) *AuthHandler {
	return &AuthHandler{Core: core}
}

// Login builds the provider's authorization URL and redirects the browser to it.
func (h *AuthHandler) Login(c *gin.Context) {
	authURL, err := h.Gateway.AuthURL()
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback exchanges the authorization code, upserts the User, issues the session
// cookie, and redirects to the configured SPA URL.
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	_, cookieValue, err := h.Gateway.ExchangeAndLogin(c.Request.Context(), state, code)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.SetCookie(h.Gateway.CookieName(), cookieValue, 0, "/", "", h.Gateway.Secure(), true)
	c.Redirect(http.StatusFound, h.Gateway.SPARedirect())
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	cookie, _ := c.Cookie(h.Gateway.CookieName())
	if cookie != "" {
		_ = h.Gateway.Logout(c.Request.Context(), cookie)
	}
	c.SetCookie(h.Gateway.CookieName(), "", -1, "/", "", h.Gateway.Secure(), true)
	c.Redirect(http.StatusFound, h.Gateway.SPARedirect())
}

// Status reports whether the caller carries a valid session, without requiring one.
func (h *AuthHandler) Status(c *gin.Context) {
	cookie, err := c.Cookie(h.Gateway.CookieName())
	if err != nil || cookie == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	sess, err := h.Gateway.ResolveCookie(c.Request.Context(), cookie)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":    sess.UserID,
			"email": sess.Email,
			"name":  sess.Name,
		},
	})
}

// Me returns the current user, or null when unauthenticated.
func (h *AuthHandler) Me(c *gin.Context) {
	cookie, err := c.Cookie(h.Gateway.CookieName())
	if err != nil || cookie == "" {
		c.JSON(http.StatusOK, nil)
		return
	}
	sess, err := h.Gateway.ResolveCookie(c.Request.Context(), cookie)
	if err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	user, err := h.Users.GetUser(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"displayName": user.Name,
		"pictureUrl":  user.Picture,
		"createdAt":   user.CreatedAt,
		"lastLoginAt": user.LastLoginAt,
	})
}

// principal is a shorthand middleware.Principal accessor, kept local so the other
// handler files don't all need to import middleware directly.
func principal(c *gin.Context) string {
	return middleware.Principal(c)
}
