package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sportcast/backend/internal/auth"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/response"
)

// ContextIdentity is the key for the verified models.Identity in gin context.
const ContextIdentity = "identity"

// JWT returns a middleware that requires a valid bearer token and stores the caller identity in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		token, ok := bearer(header)
		if !ok {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, claims.Identity())
		c.Next()
	}
}

// OptionalJWT sets the identity when a valid bearer token is present and lets anonymous requests through.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c.GetHeader("Authorization")); ok {
			if claims, err := jwtService.Validate(token); err == nil {
				c.Set(ContextIdentity, claims.Identity())
			}
		}
		c.Next()
	}
}

// CurrentIdentity returns the caller set by JWT/OptionalJWT.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return models.Identity{}, false
	}
	ident, ok := v.(models.Identity)
	return ident, ok
}

// MustIdentity returns the caller on routes behind JWT.
func MustIdentity(c *gin.Context) models.Identity {
	return c.MustGet(ContextIdentity).(models.Identity)
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
