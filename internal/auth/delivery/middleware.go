package delivery

import (
	"net/http"
	"strings"

	authdomain "mailledger-backend/internal/auth/domain"
	"mailledger-backend/internal/auth/usecase"
	"mailledger-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserKey holds the authenticated *domain.User
	ContextUserKey = "user"
	// ContextUserIDKey holds the authenticated user's id
	ContextUserIDKey = "userID"
)

// AuthMiddleware authenticates the bearer token and attaches the user and a
// request-scoped logger to the request.
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required", "code": "INVALID_TOKEN"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format", "code": "INVALID_TOKEN"})
			c.Abort()
			return
		}

		user, err := authUsecase.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "code": "INVALID_TOKEN"})
			c.Abort()
			return
		}

		log := logger.FromContext(c.Request.Context()).With().Str("user_id", user.ID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user set by AuthMiddleware
func CurrentUser(c *gin.Context) (*authdomain.User, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*authdomain.User)
	return user, ok
}
