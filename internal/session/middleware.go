package session

import (
	"github.com/gin-gonic/gin"

	"github.com/abbashop/storefront/internal/account"
	"github.com/abbashop/storefront/internal/httpx"
)

const userIDKey = "session_user_id"

// UserID returns the authenticated account id set by RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequireUser resolves the session cookie and stores the account id on the
// request context, or aborts with 401.
func (s *Store) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.cookieName)
		if err != nil || token == "" {
			httpx.AbortError(c, 401, "not authenticated")
			return
		}
		userID, err := s.Resolve(c.Request.Context(), token)
		if err != nil {
			httpx.AbortError(c, 401, "not authenticated")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// RequireAdmin re-reads the account row on every privileged request. The role
// is never trusted from session state, so a revoked admin loses access on the
// next request, not at session expiry.
func (s *Store) RequireAdmin(accounts account.Repository) gin.HandlerFunc {
	requireUser := s.RequireUser()
	return func(c *gin.Context) {
		requireUser(c)
		if c.IsAborted() {
			return
		}
		u, err := accounts.GetByID(c.Request.Context(), UserID(c))
		if err != nil || !u.IsAdmin {
			httpx.AbortError(c, 403, "admin privileges required")
			return
		}
		c.Next()
	}
}
