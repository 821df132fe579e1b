package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fulfillment-service/internal/auth"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// UserSource resolves a token's subject to a stored user
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Gate enforces authentication and admin privilege on routes
type Gate struct {
	auth  *auth.Service
	users UserSource
}

// NewGate creates a new access gate
func NewGate(authService *auth.Service, users UserSource) *Gate {
	return &Gate{auth: authService, users: users}
}

// RequireAuth validates the bearer token and resolves the caller.
// The user record is re-read so a revoked user or stale admin flag in
// the token does not survive.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed: token not provided",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed: invalid authorization header",
			})
			return
		}

		identity, err := g.auth.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed: invalid token",
			})
			return
		}

		user, err := g.users.GetUserByID(c.Request.Context(), identity.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed: user not found",
			})
			return
		}

		c.Set(identityKey, &auth.Identity{
			UserID:  user.ID,
			Name:    user.Name,
			IsAdmin: user.IsAdmin,
		})
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin flag. Must run after
// RequireAuth.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok || !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Authorization failed: not authorized as an admin",
			})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
