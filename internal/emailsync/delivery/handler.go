package delivery

import (
	"context"
	"net/http"
	"strconv"

	"mailledger-backend/internal/emailsync/domain"
	"mailledger-backend/internal/emailsync/dto"
	"mailledger-backend/internal/emailsync/usecase"
	"mailledger-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SyncHandler handles mailbox import HTTP requests
type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncUsecase usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{
		syncUsecase: syncUsecase,
	}
}

// RunSync runs one import pass for the authenticated user
// POST /api/email-sync/run
func (h *SyncHandler) RunSync(c *gin.Context) {
	userID := c.GetString("userID")

	// A client disconnect must not abort a run holding the sync lease
	ctx := context.WithoutCancel(c.Request.Context())

	result, err := h.syncUsecase.SyncUser(ctx, userID)
	if err != nil {
		syncErr := domain.AsSyncError(err)
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("code", string(syncErr.Code)).Msg("Manual sync failed")
		c.JSON(syncErr.HTTPStatus(), dto.NewErrorResponse(syncErr))
		return
	}

	c.JSON(http.StatusOK, dto.NewRunResponse(result))
}

// GetStatus returns the integration state of the authenticated user
// GET /api/email-sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	userID := c.GetString("userID")

	settings, err := h.syncUsecase.GetStatus(c.Request.Context(), userID)
	if err != nil {
		syncErr := domain.AsSyncError(err)
		c.JSON(syncErr.HTTPStatus(), dto.NewErrorResponse(syncErr))
		return
	}

	c.JSON(http.StatusOK, dto.NewStatusResponse(settings))
}

// ListTransactions returns imported records, newest first
// GET /api/email-sync/transactions?limit=50&offset=0&q=swiggy
func (h *SyncHandler) ListTransactions(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := h.syncUsecase.ListImported(c.Request.Context(), userID, limit, offset, c.Query("q"))
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("Failed to list imported transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	if records == nil {
		records = []*domain.ImportedTransaction{}
	}

	c.JSON(http.StatusOK, dto.TransactionListResponse{
		Transactions: records,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	})
}
