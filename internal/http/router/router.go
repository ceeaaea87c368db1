package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/config"
	"github.com/chantierflow/commerce-api/internal/database"
	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/http/handler"
	"github.com/chantierflow/commerce-api/internal/http/middleware"
	"github.com/chantierflow/commerce-api/internal/pricewarehouse"

	_ "github.com/chantierflow/commerce-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                     *config.Config
	logger                  *zap.Logger
	db                      *gorm.DB
	warehouse               *pricewarehouse.Client
	authMiddleware          *auth.Middleware
	companyFilterMiddleware *middleware.CompanyFilterMiddleware
	rateLimiter             *middleware.RateLimiter
	documentHandler         *handler.DocumentHandler
	clientHandler           *handler.ClientHandler
	signatureHandler        *handler.SignatureHandler
	subscriptionHandler     *handler.SubscriptionHandler
	webhookHandler          *handler.WebhookHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	warehouse *pricewarehouse.Client,
	authMiddleware *auth.Middleware,
	companyFilterMiddleware *middleware.CompanyFilterMiddleware,
	rateLimiter *middleware.RateLimiter,
	documentHandler *handler.DocumentHandler,
	clientHandler *handler.ClientHandler,
	signatureHandler *handler.SignatureHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	webhookHandler *handler.WebhookHandler,
) *Router {
	return &Router{
		cfg:                     cfg,
		logger:                  logger,
		db:                      db,
		warehouse:               warehouse,
		authMiddleware:          authMiddleware,
		companyFilterMiddleware: companyFilterMiddleware,
		rateLimiter:             rateLimiter,
		documentHandler:         documentHandler,
		clientHandler:           clientHandler,
		signatureHandler:        signatureHandler,
		subscriptionHandler:     subscriptionHandler,
		webhookHandler:          webhookHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

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
			"stats":   stats,
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

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

		// Price warehouse is optional; a degraded warehouse does not
		// make the service unready.
		if rt.warehouse != nil {
			checks["price_warehouse"] = rt.warehouse.HealthCheck(r.Context())
		}

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

	// Public signing endpoints. The token in the URL is the only
	// credential a client needs to review and sign a document.
	r.Route("/sign", func(r chi.Router) {
		r.Use(rt.rateLimiter.LimitByIP)
		r.Get("/{token}", rt.signatureHandler.ValidateSession)
		r.Post("/{token}", rt.signatureHandler.SignSession)
	})

	// Payment provider webhooks, authenticated by HMAC signature
	r.With(rt.rateLimiter.LimitByIP).Post("/webhooks/billing", rt.webhookHandler.HandleBillingEvent)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)
			r.Use(rt.companyFilterMiddleware.Filter)

			// Clients
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", rt.clientHandler.List)
				r.Post("/", rt.clientHandler.Create)
				r.Get("/{id}", rt.clientHandler.Get)
				r.Put("/{id}", rt.clientHandler.Update)
				r.Delete("/{id}", rt.clientHandler.Delete)
			})

			// Documents
			r.Route("/documents", func(r chi.Router) {
				r.Get("/", rt.documentHandler.List)
				r.Post("/", rt.documentHandler.Create)
				r.Get("/stats", rt.documentHandler.Stats)
				r.Get("/{id}", rt.documentHandler.Get)
				r.Put("/{id}", rt.documentHandler.Update)
				r.Delete("/{id}", rt.documentHandler.Delete)

				// Lifecycle endpoints
				r.Post("/{id}/send", rt.documentHandler.Send)
				r.Post("/{id}/cancel", rt.documentHandler.Cancel)
				r.Get("/{id}/payable", rt.documentHandler.IsPayable)
				r.With(rt.authMiddleware.RequireRoles(domain.RoleAdmin, domain.RoleAccountant, domain.RoleAPIService)).
					Post("/{id}/mark-paid", rt.documentHandler.MarkPaid)

				// Audit trail and payments
				r.Get("/{id}/activity", rt.documentHandler.ListActivity)
				r.Get("/{id}/payments", rt.documentHandler.ListPayments)

				// Lines
				r.Post("/{id}/lines", rt.documentHandler.AddLine)
				r.Post("/{id}/lines/from-library", rt.documentHandler.AddLineFromLibrary)

				// Signature sessions
				r.Get("/{id}/signature-sessions", rt.signatureHandler.ListByDocument)
				r.Post("/{id}/signature-sessions", rt.signatureHandler.CreateSession)
			})

			// Line mutations addressed by line ID
			r.Route("/lines", func(r chi.Router) {
				r.Put("/{lineId}", rt.documentHandler.UpdateLine)
				r.Delete("/{lineId}", rt.documentHandler.RemoveLine)
			})

			// Pricing
			r.Route("/pricing", func(r chi.Router) {
				r.Post("/resolve", rt.documentHandler.ResolvePrice)
				r.Get("/library", rt.documentHandler.ListLibrary)
			})

			// Subscription
			r.Get("/subscription", rt.subscriptionHandler.Get)
		})
	})

	return r
}
