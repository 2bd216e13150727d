package notification

import (
	"context"
	"fmt"
	"strconv"

	authdomain "mailledger-backend/internal/auth/domain"
	"mailledger-backend/internal/emailsync/domain"
	"mailledger-backend/pkg/fcm"
	"mailledger-backend/pkg/logger"
)

// TokenStore is the device token storage the notifier reads and prunes
type TokenStore interface {
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// PushSender delivers a notification to devices and returns the tokens that failed
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// ImportNotifier pushes a summary to the user's devices after a run imported transactions
type ImportNotifier struct {
	tokens TokenStore
	sender PushSender
}

func NewImportNotifier(tokens TokenStore, sender PushSender) *ImportNotifier {
	return &ImportNotifier{
		tokens: tokens,
		sender: sender,
	}
}

// NotifyImported sends the push in the background so the sync run is not delayed
func (n *ImportNotifier) NotifyImported(ctx context.Context, userID string, result *domain.SyncResult) {
	if result == nil || result.Imported == 0 {
		return
	}
	summary := *result
	go n.notify(context.WithoutCancel(ctx), userID, &summary)
}

func (n *ImportNotifier) notify(ctx context.Context, userID string, result *domain.SyncResult) {
	log := logger.Component(ctx, "import_notifier")

	tokens, err := n.tokens.GetTokensByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load FCM tokens")
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := n.sender.SendToDevices(ctx, tokenStrings, buildImportNotification(result))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send import notification")
		return
	}

	for _, token := range failedTokens {
		if err := n.tokens.DeleteToken(ctx, token); err != nil {
			log.Warn().Err(err).Msg("Failed to prune FCM token")
		}
	}
	log.Debug().Str("user_id", userID).Int("devices", len(tokenStrings)-len(failedTokens)).Msg("Import notification sent")
}

func buildImportNotification(result *domain.SyncResult) fcm.NotificationData {
	title := "1 transaction imported"
	if result.Imported != 1 {
		title = fmt.Sprintf("%d transactions imported", result.Imported)
	}

	body := "New expenses from your mailbox were added to your ledger"
	if result.Duplicates > 0 {
		body = fmt.Sprintf("%s. %d matched entries you already recorded", body, result.Duplicates)
	}

	return fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":       "transactions_imported",
			"imported":   strconv.Itoa(result.Imported),
			"duplicates": strconv.Itoa(result.Duplicates),
		},
		ClickAction: "/transactions",
	}
}
