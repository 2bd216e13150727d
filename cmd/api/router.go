package api

import (
	"net/http"

	"mailledger-backend/internal/auth/delivery"
	authUsecase "mailledger-backend/internal/auth/usecase"
	syncDelivery "mailledger-backend/internal/emailsync/delivery"
	syncUsecase "mailledger-backend/internal/emailsync/usecase"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, syncUsecase syncUsecase.SyncUsecase) {
	authHandler := delivery.NewAuthHandler(authUsecase)
	syncHandler := syncDelivery.NewSyncHandler(syncUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUsecase))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Email import routes (protected)
		emailSync := api.Group("/email-sync")
		emailSync.Use(delivery.AuthMiddleware(authUsecase))
		{
			emailSync.POST("/run", syncHandler.RunSync)
			emailSync.GET("/status", syncHandler.GetStatus)
			emailSync.GET("/transactions", syncHandler.ListTransactions)
		}
	}
}
