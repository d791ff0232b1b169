package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vitrineshop/storefront/internal/auth"
	"github.com/vitrineshop/storefront/internal/models"
)

const viewerKey = "viewer"

// OptionalAuth resolves the viewer from a bearer token when one is present.
// Guests pass through with an empty viewer; product visibility filtering
// handles the rest.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := models.Viewer{}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				if _, groups, err := auth.ValidateToken(parts[1]); err == nil {
					viewer = models.Viewer{Member: true, Groups: groups}
				}
			}
		}

		c.Set(viewerKey, viewer)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		memberID, groups, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("memberID", memberID)
		c.Set(viewerKey, models.Viewer{Member: true, Groups: groups})
		c.Next()
	}
}

// Viewer extracts the resolved viewer from the request context.
func Viewer(c *gin.Context) models.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(models.Viewer); ok {
			return viewer
		}
	}
	return models.Viewer{}
}
