package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/cartsplit/internal/adapter/http"
	"github.com/iho/cartsplit/internal/adapter/http/handler"
	"github.com/iho/cartsplit/internal/adapter/http/middleware"
	"github.com/iho/cartsplit/internal/adapter/realtime"
	postgresRepo "github.com/iho/cartsplit/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cartsplit/internal/adapter/repository/redis"
	"github.com/iho/cartsplit/internal/infrastructure/auth"
	"github.com/iho/cartsplit/internal/infrastructure/config"
	"github.com/iho/cartsplit/internal/infrastructure/eventpublisher"
	"github.com/iho/cartsplit/internal/infrastructure/logger"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
	"github.com/iho/cartsplit/internal/infrastructure/openfoodfacts"
	"github.com/iho/cartsplit/internal/infrastructure/postgres"
	"github.com/iho/cartsplit/internal/infrastructure/push"
	"github.com/iho/cartsplit/internal/infrastructure/redis"
	"github.com/iho/cartsplit/internal/usecase"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, baseLogger zerolog.Logger) error {
	// Run migrations before taking traffic
	if cfg.AutoMigrate {
		migrator := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger.Component(baseLogger, "migrate"))
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	baseLogger.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	baseLogger.Info().Msg("connected to redis")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	sessionRepo := postgresRepo.NewSessionRepository(pool)
	productRepo := postgresRepo.NewProductRepository(pool)
	debtRepo := postgresRepo.NewDebtRepository(pool)
	deviceRepo := postgresRepo.NewDeviceRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(
		postgresRepo.WithRetryLogger(logger.Component(baseLogger, "retrier")),
		postgresRepo.WithRetryMetrics(m),
	)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)

	// Identity
	verifier, err := buildVerifier(cfg, userRepo, logger.Component(baseLogger, "auth"))
	if err != nil {
		return err
	}

	// Realtime signals fan out through redis to every instance's hub
	hub := realtime.NewHub(cfg.WSPingInterval, logger.Component(baseLogger, "realtime"), m)
	defer hub.Close()
	relay := redisRepo.NewRelay(redisClient, hub, logger.Component(baseLogger, "relay"))
	go func() {
		if err := relay.Run(ctx); err != nil {
			baseLogger.Error().Err(err).Msg("realtime relay stopped")
		}
	}()

	// Push notifications from the outbox
	notifier, err := push.New(ctx, push.Config{
		ProjectID:       cfg.FCMProjectID,
		CredentialsFile: cfg.FCMCredentialsFile,
	}, logger.Component(baseLogger, "push"))
	if err != nil {
		return fmt.Errorf("failed to create push notifier: %w", err)
	}
	outboxLogger := baseLogger
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewPushPublisher(deviceRepo, notifier, m, logger.Component(baseLogger, "push")),
		Logger:     &outboxLogger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			baseLogger.Error().Err(err).Msg("outbox publisher stopped")
		}
	}()

	nutrition := openfoodfacts.NewClient(cfg.OpenFoodFactsURL, 5*time.Second)

	// Initialize use cases
	sessionUC := usecase.NewSessionUseCase(txManager, sessionRepo, debtRepo, outboxRepo, userRepo, relay, retrier, idGen, m)
	productUC := usecase.NewProductUseCase(
		txManager, sessionRepo, productRepo, relay, retrier, nutrition, cache, idGen, m,
		logger.Component(baseLogger, "products"),
	).WithCacheTTL(cfg.ProductCacheTTL)
	debtUC := usecase.NewDebtUseCase(txManager, debtRepo, retrier, relay, m)
	deviceUC := usecase.NewDeviceUseCase(deviceRepo)
	historyUC := usecase.NewHistoryUseCase(sessionRepo)
	receiptUC := usecase.NewReceiptUseCase(txManager, sessionRepo, productRepo, debtRepo, outboxRepo, userRepo, relay, retrier, idGen, m)
	userUC := usecase.NewUserUseCase(userRepo, cfg.MaxUsersResult)

	// Rate limiting
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	rateLimiter.StartCleanup(ctx, time.Minute)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		HealthHandler: handler.NewHealthHandler(version,
			postgres.NewChecker(pool),
			redis.NewChecker(redisClient),
		),
		UserHandler:     handler.NewUserHandler(userUC),
		SessionHandler:  handler.NewSessionHandler(sessionUC),
		ProductHandler:  handler.NewProductHandler(productUC),
		DebtHandler:     handler.NewDebtHandler(debtUC),
		DeviceHandler:   handler.NewDeviceHandler(deviceUC),
		HistoryHandler:  handler.NewHistoryHandler(historyUC),
		ReceiptHandler:  handler.NewReceiptHandler(receiptUC),
		RealtimeHandler: handler.NewRealtimeHandler(verifier, hub),

		Verifier:           verifier,
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        rateLimiter,
		Metrics:            m,
		MetricsGatherer:    registry,
		Logger:             logger.Component(baseLogger, "http"),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		baseLogger.Info().Str("port", cfg.HTTPPort).Str("version", version).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	baseLogger.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// buildVerifier picks the token verifier for the configured auth mode and
// records every verified caller in the user directory.
func buildVerifier(cfg *config.Config, users auth.UserDirectory, l zerolog.Logger) (auth.TokenVerifier, error) {
	var base auth.TokenVerifier
	switch cfg.AuthMode {
	case config.AuthModeGoogle:
		base = auth.NewGoogleVerifier(cfg.GoogleClientID)
	case config.AuthModeJWT:
		base = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
	return auth.NewDirectoryVerifier(base, users, l), nil
}
