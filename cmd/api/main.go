package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/docs"
	"github.com/chantierflow/commerce-api/internal/aiprice"
	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/config"
	"github.com/chantierflow/commerce-api/internal/database"
	"github.com/chantierflow/commerce-api/internal/http/handler"
	"github.com/chantierflow/commerce-api/internal/http/middleware"
	"github.com/chantierflow/commerce-api/internal/http/router"
	"github.com/chantierflow/commerce-api/internal/jobs"
	"github.com/chantierflow/commerce-api/internal/logger"
	"github.com/chantierflow/commerce-api/internal/pricewarehouse"
	"github.com/chantierflow/commerce-api/internal/pricing"
	"github.com/chantierflow/commerce-api/internal/repository"
	"github.com/chantierflow/commerce-api/internal/service"
	"github.com/chantierflow/commerce-api/internal/storage"
)

// sessionSweepCron runs at half past every hour
const sessionSweepCron = "0 30 * * * *"

// @title ChantierFlow Commerce API
// @version 1.0
// @description Commercial document pricing and lifecycle API for construction businesses

// @contact.name API Support
// @contact.email support@chantierflow.fr

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "api-staging.chantierflow.fr"
	case "production":
		docs.SwaggerInfo.Host = "api.chantierflow.fr"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database with retry logic
	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.App.Environment == "development" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize storage for signature artifacts
	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize market price warehouse connection (optional, read-only).
	// The app continues without it if not configured.
	var warehouseClient *pricewarehouse.Client
	if cfg.PriceWarehouse.Enabled {
		warehouseClient, err = pricewarehouse.NewClient(&cfg.PriceWarehouse, log)
		if err != nil {
			log.Warn("Price warehouse connection failed, continuing without it",
				zap.Error(err),
			)
		} else if warehouseClient != nil {
			log.Info("Price warehouse connected successfully",
				zap.Int("max_open_conns", cfg.PriceWarehouse.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.PriceWarehouse.QueryTimeout),
			)
		}
	} else {
		log.Info("Price warehouse not configured, skipping")
	}

	// Initialize the AI price estimator (optional)
	aiClient := aiprice.NewClient(&cfg.AIEstimator, log)
	if aiClient != nil {
		log.Info("AI price estimator configured",
			zap.String("base_url", cfg.AIEstimator.BaseURL))
	}

	// Initialize repositories
	documentRepo := repository.NewDocumentRepository(db)
	lineRepo := repository.NewDocumentLineRepository(db)
	libraryRepo := repository.NewPriceLibraryRepository(db)
	clientRepo := repository.NewClientRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sessionRepo := repository.NewSignatureSessionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Price resolver: manual > library > market estimate > AI estimate.
	// A typed nil pointer would make the interface non-nil, so only pass
	// estimators that were actually configured.
	var marketEstimator, aiEstimator pricing.Estimator
	if warehouseClient != nil {
		marketEstimator = warehouseClient
	}
	if aiClient != nil {
		aiEstimator = aiClient
	}
	resolver := pricing.NewResolver(libraryRepo, marketEstimator, aiEstimator, log)

	// Initialize services
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, log)
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	documentService := service.NewDocumentService(
		documentRepo, lineRepo, libraryRepo, clientRepo, companyRepo,
		activityRepo, paymentRepo, subscriptionService, numberSequenceService,
		resolver, cfg.Payments.InvoiceDueDays, log, db)
	signatureService := service.NewSignatureService(
		sessionRepo, documentService, fileStorage, cfg.Signature.SessionTTL(), log)
	clientService := service.NewClientService(clientRepo, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	companyFilterMiddleware := middleware.NewCompanyFilterMiddleware(log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	documentHandler := handler.NewDocumentHandler(documentService, log)
	clientHandler := handler.NewClientHandler(clientService, log)
	signatureHandler := handler.NewSignatureHandler(signatureService, log)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, log)
	webhookHandler := handler.NewWebhookHandler(
		documentService, subscriptionService, cfg.Payments.WebhookSecret, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		warehouseClient,
		authMiddleware,
		companyFilterMiddleware,
		rateLimiter,
		documentHandler,
		clientHandler,
		signatureHandler,
		subscriptionHandler,
		webhookHandler,
	)

	// Background cleanup of expired pending signature sessions
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterSessionSweepJob(
		scheduler,
		signatureService,
		cfg.Signature.SweepGrace(),
		log,
		sessionSweepCron,
	); err != nil {
		log.Error("Failed to register session sweep job", zap.Error(err))
	} else {
		scheduler.Start()
		log.Info("Scheduler started with session sweep job",
			zap.String("cron_expr", sessionSweepCron),
			zap.Duration("grace", cfg.Signature.SweepGrace()),
		)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		schedCtx := scheduler.Stop()
		<-schedCtx.Done()
		log.Info("Scheduler stopped")

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close price warehouse connection if initialized
		if warehouseClient != nil {
			if err := warehouseClient.Close(); err != nil {
				log.Warn("Error closing price warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
