package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hemfix-se/billing-api/internal/auth"
	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/hemfix-se/billing-api/internal/database"
	"github.com/hemfix-se/billing-api/internal/datawarehouse"
	"github.com/hemfix-se/billing-api/internal/http/handler"
	"github.com/hemfix-se/billing-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/hemfix-se/billing-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	warehouse        *datawarehouse.Client
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	customerHandler  *handler.CustomerHandler
	bookingHandler   *handler.BookingHandler
	jobHandler       *handler.JobHandler
	quoteHandler     *handler.QuoteHandler
	invoiceHandler   *handler.InvoiceHandler
	publicHandler    *handler.PublicHandler
	analyticsHandler *handler.AnalyticsHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	warehouse *datawarehouse.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	customerHandler *handler.CustomerHandler,
	bookingHandler *handler.BookingHandler,
	jobHandler *handler.JobHandler,
	quoteHandler *handler.QuoteHandler,
	invoiceHandler *handler.InvoiceHandler,
	publicHandler *handler.PublicHandler,
	analyticsHandler *handler.AnalyticsHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		db:               db,
		warehouse:        warehouse,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		customerHandler:  customerHandler,
		bookingHandler:   bookingHandler,
		jobHandler:       jobHandler,
		quoteHandler:     quoteHandler,
		invoiceHandler:   invoiceHandler,
		publicHandler:    publicHandler,
		analyticsHandler: analyticsHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		// Check database
		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// Check tracking warehouse (degraded, not unhealthy, when down:
		// analytics falls back to internal events)
		checks["tracking_warehouse"] = rt.warehouse.HealthCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Rendered documents when running with local storage
	if rt.cfg.Storage.Mode == "local" {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(rt.cfg.Storage.LocalBasePath)))
		r.Get("/files/*", fs.ServeHTTP)
	}

	// Customer-facing share links (token-authenticated, stricter rate limit)
	r.Group(func(r chi.Router) {
		r.Use(rt.rateLimiter.LimitPublic)

		r.Route("/q/{number}/{token}", func(r chi.Router) {
			r.Get("/", rt.publicHandler.GetQuote)
			r.Post("/accept", rt.publicHandler.AcceptQuote)
			r.Post("/decline", rt.publicHandler.DeclineQuote)
			r.Post("/request-change", rt.publicHandler.RequestChange)
		})

		r.Get("/i/{number}/{token}", rt.publicHandler.GetInvoice)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Customers
			r.Route("/customers", func(r chi.Router) {
				r.Get("/", rt.customerHandler.List)
				r.Post("/", rt.customerHandler.Create)
				r.Get("/{id}", rt.customerHandler.GetByID)
				r.Put("/{id}", rt.customerHandler.Update)
			})

			// Bookings
			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", rt.bookingHandler.List)
				r.Post("/", rt.bookingHandler.Create)
				r.Get("/{id}", rt.bookingHandler.GetByID)
				r.Put("/{id}/status", rt.bookingHandler.UpdateStatus)
			})

			// Jobs
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", rt.jobHandler.List)
				r.Post("/", rt.jobHandler.Create)
				r.Get("/{id}", rt.jobHandler.GetByID)
				r.Put("/{id}/status", rt.jobHandler.UpdateStatus)
				r.Post("/{id}/invoice", rt.invoiceHandler.CreateFromJob)
			})

			// Quotes
			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", rt.quoteHandler.List)
				r.Post("/", rt.quoteHandler.Create)
				r.Get("/{id}", rt.quoteHandler.GetByID)
				r.Put("/{id}", rt.quoteHandler.Update)
				r.Delete("/{id}", rt.quoteHandler.Delete)

				// Lifecycle endpoints
				r.Post("/{id}/send", rt.quoteHandler.Send)
				r.Post("/{id}/reissue", rt.quoteHandler.Reissue)
				r.Post("/{id}/invoice", rt.invoiceHandler.CreateFromQuote)

				// Sub-resources
				r.Get("/{id}/change-requests", rt.quoteHandler.GetChangeRequests)
				r.Get("/{id}/activities", rt.quoteHandler.GetActivities)
				r.Get("/{id}/pdf", rt.quoteHandler.GetPdf)
				r.Get("/{id}/pdf/download", rt.quoteHandler.DownloadPdf)
			})

			// Invoices
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", rt.invoiceHandler.List)
				r.Get("/{id}", rt.invoiceHandler.GetByID)
				r.Post("/{id}/send", rt.invoiceHandler.Send)
				r.Post("/{id}/mark-paid", rt.invoiceHandler.MarkPaid)
				r.Get("/{id}/pdf", rt.invoiceHandler.GetPdf)
				r.Get("/{id}/pdf/download", rt.invoiceHandler.DownloadPdf)
			})

			// Analytics (admin only)
			r.Route("/analytics", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireAdmin)
				r.Get("/revenue", rt.analyticsHandler.Revenue)
				r.Get("/revenue/export", rt.analyticsHandler.ExportRevenue)
				r.Get("/quotes", rt.analyticsHandler.Quotes)
				r.Get("/funnel", rt.analyticsHandler.Funnel)
				r.Get("/pipeline", rt.analyticsHandler.Pipeline)
			})
		})
	})

	return r
}
