// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity. Authentication happens upstream
// (gateway or reverse proxy); the API trusts the forwarded X-User-ID and
// X-User-Role headers and stashes them in the Gin context so that logging,
// rate limiting, idempotency and authorization all read the same values.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers forwarded by the gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyRole   = "userRole"

	// anonymousUser is used when no identity was forwarded.
	anonymousUser = "anonymous"
)

// Roles understood by RoleAuthorizer.
const (
	RoleAdmin = "admin"
	RoleOps   = "ops"
	RoleOwner = "owner"
	RoleAgent = "agent"
)

// Identity copies the forwarded identity headers into the Gin context.
// Values already set by an earlier middleware win.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxKeyUserID); !ok {
			if h := strings.TrimSpace(c.GetHeader(HeaderUserID)); h != "" {
				c.Set(ctxKeyUserID, h)
			}
		}
		if _, ok := c.Get(ctxKeyRole); !ok {
			if h := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))); h != "" {
				c.Set(ctxKeyRole, h)
			}
		}
		c.Next()
	}
}

// UserID returns the caller id, or "anonymous".
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return anonymousUser
}

// Role returns the caller role, or "" when none was forwarded.
func Role(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyRole); ok {
		s, _ := v.(string)
		return s
	}
	return ""
}
