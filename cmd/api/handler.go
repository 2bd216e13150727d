package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authUsecase "mailledger-backend/internal/auth/usecase"
	syncUsecase "mailledger-backend/internal/emailsync/usecase"
	"mailledger-backend/pkg/config"
	"mailledger-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	syncUsecase syncUsecase.SyncUsecase
	config      *config.Config
}

func NewHandler(authUc authUsecase.AuthUsecase, syncUc syncUsecase.SyncUsecase, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase: authUc,
		syncUsecase: syncUc,
		config:      cfg,
	}
}

// Engine builds the gin engine with middleware and routes
func (h *Handler) Engine() *gin.Engine {
	if h.config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), CORS())

	SetupRoutes(r, h.authUsecase, h.syncUsecase)
	return r
}

// Start serves HTTP until ctx is cancelled, then drains in-flight requests
func (h *Handler) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log := logger.Default()
		log.Info().Str("addr", addr).Msg("Server starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
