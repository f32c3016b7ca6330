package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/config"
	"github.com/noah-isme/backend-showroom/internal/events"
	"github.com/noah-isme/backend-showroom/internal/lock"
	"github.com/noah-isme/backend-showroom/internal/obs"
	"github.com/noah-isme/backend-showroom/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel, "showroom-worker")
	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "showroom"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	repository, err := catalog.NewRepository(catalog.NewQueries(pool))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog repository")
	}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Fetcher: repository,
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Policy: resilience.Policy{
			Breaker: resilience.NewBreaker(cfg.CircuitCatalogMinRequests, cfg.CircuitCatalogFailureRate, cfg.CircuitCatalogOpenFor).
				WithTarget("catalog").
				WithLogger(logger),
			MaxAttempts: 3,
			Jitter:      0.2,
		},
		Logger: &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	eventStore := events.NewPGStore(pool)
	bus := &events.Bus{Store: eventStore}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("showroom-worker"), nats.MaxReconnects(-1))
		if err != nil {
			logger.Error().Err(err).Msg("connect nats")
		} else {
			defer nc.Close()
			bus.Notifiers = append(bus.Notifiers, events.NATSNotifier{
				Conn:          nc,
				SubjectPrefix: cfg.NATSSubjectPrefix,
				Topics:        events.DefaultTopics(),
			})
		}
	}

	s := scheduler{
		Locker:    lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		Catalog:   catalogService,
		Events:    bus,
		Purger:    eventStore,
		Retention: cfg.EventRetention,
		Logger:    &logger,
	}

	logger.Info().Dur("refresh_interval", cfg.CatalogRefreshInterval).Msg("worker starting")
	if err := s.Run(ctx, cfg.CatalogRefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "showroom-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
