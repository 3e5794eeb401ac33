package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hemfix-se/billing-api/docs"
	"github.com/hemfix-se/billing-api/internal/auth"
	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/hemfix-se/billing-api/internal/database"
	"github.com/hemfix-se/billing-api/internal/datawarehouse"
	"github.com/hemfix-se/billing-api/internal/http/handler"
	"github.com/hemfix-se/billing-api/internal/http/middleware"
	"github.com/hemfix-se/billing-api/internal/http/router"
	"github.com/hemfix-se/billing-api/internal/jobs"
	"github.com/hemfix-se/billing-api/internal/logger"
	"github.com/hemfix-se/billing-api/internal/pdf"
	"github.com/hemfix-se/billing-api/internal/repository"
	"github.com/hemfix-se/billing-api/internal/service"
	"github.com/hemfix-se/billing-api/internal/storage"
	"go.uber.org/zap"
)

// @title Hemfix Billing API
// @version 1.0
// @description Quote and invoice pipeline for the Hemfix home services marketplace

// @contact.name API Support
// @contact.email support@hemfix.se

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
		docs.SwaggerInfo.Host = "billing-staging.hemfix.se"
	case "production":
		docs.SwaggerInfo.Host = "billing.hemfix.se"
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

	// Connect to database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.App.Environment == "development" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to run auto migrations: %w", err)
		}
	}

	// Initialize storage for rendered documents
	docStorage, err := storage.NewStorage(&cfg.Storage, cfg.App.PublicBaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Connect to the marketing tracking warehouse (optional, read-only).
	// The funnel report falls back to local events without it.
	dwClient, err := datawarehouse.NewClient(&cfg.Tracking, log)
	if err != nil {
		log.Warn("Tracking warehouse connection failed, continuing without it",
			zap.Error(err),
		)
		dwClient = nil
	} else if dwClient != nil {
		log.Info("Tracking warehouse connected",
			zap.Int("max_open_conns", cfg.Tracking.MaxOpenConns),
			zap.Int("query_timeout_seconds", cfg.Tracking.QueryTimeout),
		)
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	jobRepo := repository.NewJobRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	eventRepo := repository.NewEventRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Initialize services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)

	customerService := service.NewCustomerService(customerRepo, log)
	bookingService := service.NewBookingService(bookingRepo, customerRepo, eventRepo, log)
	jobService := service.NewJobService(jobRepo, bookingRepo, customerRepo, log)
	quoteService := service.NewQuoteService(quoteRepo, bookingRepo, customerRepo, activityRepo, numberSequenceService, &cfg.Billing, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, quoteRepo, jobRepo, activityRepo, numberSequenceService, &cfg.Billing, log)
	publicService := service.NewPublicService(quoteRepo, invoiceRepo, quoteService, eventRepo, log)

	pdfClient := pdf.NewClient(&cfg.Pdf, log)
	documentService := service.NewDocumentService(quoteRepo, invoiceRepo, pdfClient, docStorage, log)

	analyticsService := service.NewAnalyticsService(quoteRepo, invoiceRepo, eventRepo, log)
	if dwClient != nil {
		analyticsService.SetTrackingClient(dwClient)
	}

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	customerHandler := handler.NewCustomerHandler(customerService, log)
	bookingHandler := handler.NewBookingHandler(bookingService, log)
	jobHandler := handler.NewJobHandler(jobService, log)
	quoteHandler := handler.NewQuoteHandler(quoteService, documentService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, documentService, log)
	publicHandler := handler.NewPublicHandler(publicService, log)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		dwClient,
		authMiddleware,
		rateLimiter,
		customerHandler,
		bookingHandler,
		jobHandler,
		quoteHandler,
		invoiceHandler,
		publicHandler,
		analyticsHandler,
	)

	// Start the expiry/overdue sweep scheduler
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		sweep := jobs.NewDocumentSweepJob(quoteService, invoiceService, log, jobs.DefaultSweepTimeout)
		if err := scheduler.AddJob(jobs.DocumentSweepJobName, cfg.Jobs.SweepSchedule, sweep.Run); err != nil {
			log.Error("Failed to register document sweep job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with document sweep job",
				zap.String("cron_expr", cfg.Jobs.SweepSchedule),
			)
		}
	} else {
		log.Info("Background jobs disabled")
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
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close tracking warehouse connection if initialized
		if dwClient != nil {
			if err := dwClient.Close(); err != nil {
				log.Warn("Error closing tracking warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
