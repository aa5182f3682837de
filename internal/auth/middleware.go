package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/abduss/mediahost/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIKeyHeader carries an API key as an alternative to a bearer token.
const APIKeyHeader = "X-API-Key"

type contextKey string

const userContextKey contextKey = "mediahostUser"

// ContextUser represents the authenticated principal stored in the request context.
type ContextUser struct {
	ID      string
	Email   string
	IsAdmin bool
}

type authenticator interface {
	ValidateAccessToken(token string) (UserClaims, error)
	AuthenticateAPIKey(ctx context.Context, secret string) (UserClaims, error)
}

// AuthMiddleware accepts a bearer JWT, a bearer API key or an X-API-Key header
// and injects the authenticated user.
func AuthMiddleware(service authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.GetHeader(APIKeyHeader)
		if credential == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
				return
			}
			credential = extractBearerToken(authHeader)
			if credential == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
				return
			}
		}

		var (
			claims UserClaims
			err    error
		)
		if strings.HasPrefix(credential, APIKeyTag) {
			claims, err = service.AuthenticateAPIKey(c.Request.Context(), credential)
		} else {
			claims, err = service.ValidateAccessToken(credential)
		}
		if err != nil {
			if err != ErrUnauthorized {
				logger.FromContext(c).Error("authenticate request", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired credentials"})
			return
		}

		SetUser(c, ContextUser{
			ID:      claims.UserID.String(),
			Email:   claims.Email,
			IsAdmin: claims.IsAdmin,
		})

		c.Next()
	}
}

// RequireAdmin rejects requests whose principal lacks the admin claim.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}

// SetUser stores the authenticated principal on the request context.
func SetUser(c *gin.Context, user ContextUser) {
	c.Set(string(userContextKey), user)
}

// CurrentUser extracts the authenticated user from the context.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	value, exists := c.Get(string(userContextKey))
	if !exists {
		return ContextUser{}, false
	}
	user, ok := value.(ContextUser)
	return user, ok
}

// RequireUser fetches the authenticated user and parses the identifier.
func RequireUser(c *gin.Context) (uuid.UUID, ContextUser, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		return uuid.Nil, ContextUser{}, false
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return uuid.Nil, ContextUser{}, false
	}
	return id, user, true
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
