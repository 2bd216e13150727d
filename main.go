package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	api "mailledger-backend/cmd/api"
	authdomain "mailledger-backend/internal/auth/domain"
	authRepo "mailledger-backend/internal/auth/repository"
	authUsecase "mailledger-backend/internal/auth/usecase"
	syncdomain "mailledger-backend/internal/emailsync/domain"
	syncRepo "mailledger-backend/internal/emailsync/repository"
	"mailledger-backend/internal/emailsync/scheduler"
	syncUsecase "mailledger-backend/internal/emailsync/usecase"
	ledgerdomain "mailledger-backend/internal/ledger/domain"
	ledgerRepo "mailledger-backend/internal/ledger/repository"
	"mailledger-backend/internal/notification"
	"mailledger-backend/pkg/config"
	"mailledger-backend/pkg/database"
	"mailledger-backend/pkg/extractor"
	"mailledger-backend/pkg/fcm"
	"mailledger-backend/pkg/gmail"
	"mailledger-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger.SetDefault(logger.New(cfg.LogLevel))
	log := logger.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.FCMToken{}, &syncdomain.SyncSettings{}, &ledgerdomain.LedgerEntry{}, &syncdomain.ImportedTransaction{}, &syncdomain.SkippedMessage{}); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	settingsRepo := syncRepo.NewSyncSettingsRepository(db)
	importedRepo := syncRepo.NewImportedTransactionRepository(db)
	ingestionWriter := syncRepo.NewIngestionWriter(db)
	ledgerRepository := ledgerRepo.NewGormLedgerRepository(db)

	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret,
		gmail.WithTokenURL(cfg.GoogleTokenURL),
		gmail.WithBaseURL(cfg.GmailAPIBaseURL),
		gmail.WithTimeout(cfg.ProviderTimeout),
	)

	opts := syncUsecase.DefaultOptions()
	opts.PageSize = cfg.SyncPageSize
	opts.ProcessingCap = cfg.SyncProcessingCap
	opts.FirstRunWindow = cfg.SyncFirstRunWindow
	opts.StaleAfter = cfg.SyncStaleAfter

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg.JWTSecret)
	syncUsecaseInstance := syncUsecase.NewSyncUsecase(
		settingsRepo,
		importedRepo,
		ingestionWriter,
		syncUsecase.NewCredentialManager(settingsRepo, gmailService, opts.TokenLeeway),
		syncUsecase.NewMessageFetcher(gmailService, importedRepo, opts),
		extractor.New(cfg.Location()),
		syncUsecase.NewReconciler(ledgerRepository),
		opts,
	)

	// Push notifications are optional
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize FCM client (push notifications disabled)")
		} else {
			syncUsecaseInstance.SetImportNotifier(notification.NewImportNotifier(fcmTokenRepo, fcmClient))
		}
	}

	// Gmail push notifications trigger syncs; only when a project is configured
	var pushListener *notification.PushListener
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		pushListener, err = notification.NewPushListener(ctx, cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, syncUsecaseInstance, opts.UserSyncTimeout)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize push listener")
			pushListener = nil
		} else {
			go func() {
				if err := pushListener.Start(ctx); err != nil {
					log.Error().Err(err).Msg("Push listener stopped")
				}
			}()
		}
	} else {
		log.Warn().Msg("GOOGLE_PROJECT_ID not configured, push-triggered sync disabled")
	}

	syncScheduler := scheduler.NewSyncScheduler(syncUsecaseInstance, cfg.SyncInterval)
	syncScheduler.Start()

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, syncUsecaseInstance, cfg)

	// Start server
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	syncScheduler.Stop()
	if pushListener != nil {
		pushListener.Wait()
		if err := pushListener.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close push listener")
		}
	}
	log.Info().Msg("Server stopped")
}
