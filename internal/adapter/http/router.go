package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/iho/cartsplit/internal/adapter/http/handler"
	"github.com/iho/cartsplit/internal/adapter/http/middleware"
	"github.com/iho/cartsplit/internal/infrastructure/auth"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
	"github.com/iho/cartsplit/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	HealthHandler   *handler.HealthHandler
	UserHandler     *handler.UserHandler
	SessionHandler  *handler.SessionHandler
	ProductHandler  *handler.ProductHandler
	DebtHandler     *handler.DebtHandler
	DeviceHandler   *handler.DeviceHandler
	HistoryHandler  *handler.HistoryHandler
	ReceiptHandler  *handler.ReceiptHandler
	RealtimeHandler *handler.RealtimeHandler

	Verifier         auth.TokenVerifier
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsGatherer  prometheus.Gatherer
	Logger           zerolog.Logger

	CORSAllowedOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/", cfg.HealthHandler.Ping)
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	// Browsers cannot set headers on websocket requests, so /ws authenticates itself.
	if cfg.RealtimeHandler != nil {
		r.Get("/ws", cfg.RealtimeHandler.Connect)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Verifier, cfg.Metrics))

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			ttl := cfg.IdempotencyTTL
			if ttl <= 0 {
				ttl = usecase.IdempotencyKeyTTL
			}
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, ttl).Wrap)
		}

		r.Route("/users", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.Search)
			r.Get("/me", cfg.UserHandler.Me)
			r.Get("/{email}", cfg.UserHandler.Get)
		})

		r.Route("/sessions/{email}", func(r chi.Router) {
			r.Get("/", cfg.SessionHandler.Get)
			r.Post("/", cfg.SessionHandler.Create)
			r.Post("/close", cfg.SessionHandler.Close)

			r.Post("/participants", cfg.SessionHandler.AddParticipant)
			r.Delete("/participants/{participant}", cfg.SessionHandler.RemoveParticipant)
			r.Post("/participants/{participant}/payment", cfg.SessionHandler.SetPayment)

			r.Post("/products", cfg.ProductHandler.Add)
			r.Patch("/products/{productID}", cfg.ProductHandler.Patch)
			r.Delete("/products/{productID}", cfg.ProductHandler.Remove)
			r.Post("/products/{productID}/participants", cfg.ProductHandler.AddParticipant)
			r.Delete("/products/{productID}/participants/{participant}", cfg.ProductHandler.RemoveParticipant)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.ProductHandler.Search)
			r.Get("/{productID}", cfg.ProductHandler.Get)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", cfg.DebtHandler.List)
			r.Get("/{debtID}", cfg.DebtHandler.Get)
			r.Patch("/{debtID}", cfg.DebtHandler.Patch)
		})

		r.Post("/devices/{email}", cfg.DeviceHandler.Register)

		r.Route("/history/{email}", func(r chi.Router) {
			r.Get("/sessions", cfg.HistoryHandler.Sessions)
			r.Get("/products", cfg.HistoryHandler.Products)
		})

		r.Post("/receipts", cfg.ReceiptHandler.Process)
	})

	if len(cfg.CORSAllowedOrigins) == 0 {
		return r
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.IdempotencyKeyHeader},
		AllowCredentials: true,
	}).Handler(r)
}
