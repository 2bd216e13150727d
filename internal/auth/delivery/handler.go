package delivery

import (
	"net/http"

	authdto "mailledger-backend/internal/auth/dto"
	"mailledger-backend/internal/auth/usecase"
	"mailledger-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
}

func NewAuthHandler(authUsecase usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
	}
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterFCMToken stores a device token for import notifications
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req authdto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString(ContextUserIDKey)
	if err := h.authUsecase.RegisterFCMToken(c.Request.Context(), userID, req.Token, req.DeviceInfo); err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("Failed to register FCM token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	token := c.Param("token")
	userID := c.GetString(ContextUserIDKey)

	if err := h.authUsecase.UnregisterFCMToken(c.Request.Context(), userID, token); err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("Failed to unregister FCM token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token unregistered"})
}
