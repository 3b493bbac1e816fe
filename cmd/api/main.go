package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustmeet/internal/api"
	"trustmeet/internal/config"
	"trustmeet/internal/database"
	"trustmeet/internal/domain"
	"trustmeet/internal/events"
	"trustmeet/internal/export"
	"trustmeet/internal/logging"
	"trustmeet/internal/metrics"
	"trustmeet/internal/repository"
	"trustmeet/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("resolve timezone: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	guard := initGuard(redisClient, logger)

	eventBus := events.NewEventBus(logging.Component(logger, "events"))
	eventBus.SubscribeAll(events.LogHandler(logging.Component(logger, "events")))

	svcLogger := logging.Component(logger, "service")
	guardTTL := time.Duration(cfg.Booking.PurchaseGuardTTL) * time.Second
	services := api.Services{
		Ledger:  service.NewLedgerService(db, eventBus, svcLogger),
		Unlocks: service.NewUnlockService(db, db, db, guard, eventBus, guardTTL, svcLogger),
		Bookings: service.NewBookingService(db, db, db, guard, eventBus, service.BookingOptions{
			Location:           loc,
			MaxSpecialRequests: cfg.Booking.MaxSpecialRequests,
			GuardTTL:           guardTTL,
		}, svcLogger),
		Creators: service.NewCreatorService(db, svcLogger),
		Earnings: service.NewEarningsService(db, db,
			export.NewStatementWriter(cfg.Exports.Path, logging.Component(logger, "export")), svcLogger),
		Throttle: service.NewThrottleService(guard, cfg.Booking.RateLimitRequests,
			time.Duration(cfg.Booking.RateLimitWindow)*time.Second, svcLogger),
	}

	httpServer := api.NewHTTPServer(cfg.API, services, loc, logging.Component(logger, "http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)

	backup := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backup.Start(ctx)

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory guard")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initGuard prefers Redis and falls back to process memory when it is absent or down.
func initGuard(redisClient *redis.Client, logger *zerolog.Logger) domain.PurchaseGuard {
	memory := repository.NewMemoryGuardRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverGuardRepository(
		repository.NewRedisGuardRepository(redisClient),
		memory,
		logging.Component(logger, "guard"),
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
