package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/helpers"
	"sjsage522/pricetracker/internal"
	"sjsage522/pricetracker/internal/crawler"
	"sjsage522/pricetracker/internal/pipeline"
	"sjsage522/pricetracker/internal/price"
	"sjsage522/pricetracker/internal/server"
	"sjsage522/pricetracker/internal/store"
	"sjsage522/pricetracker/logger"
	"sjsage522/pricetracker/services/cache"
	"sjsage522/pricetracker/services/publisher"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPAddr).
		Dur("rate_limit", cfg.RateLimit).
		Msg("Starting price tracker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Cleanup()

	srv := server.NewHTTPServer(cfg.HTTPAddr, buildHandler(cfg, deps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
	}
}

// buildHandler wires the collection pipeline behind the HTTP endpoints
func buildHandler(cfg *config.Config, deps *internal.Dependencies) *server.Handler {
	registry := crawler.CreateRegistry(price.NewNormalizer(cfg.MinPrice, cfg.MaxPrice))

	fetcher := helpers.NewFetcher(helpers.FetchOptions{
		Timeout:    cfg.ScrapeTimeout,
		MaxRetries: cfg.ScrapeMaxRetries,
		BaseDelay:  cfg.ScrapeBackoff,
		UserAgent:  cfg.UserAgent,
	})

	runner := pipeline.NewRunner(
		deps.Repository,
		registry,
		fetcher,
		cache.NewHostCooldown(deps.Cache, cfg.HostCooldown),
		deps.Publisher,
		pipeline.Options{
			RateLimit:        cfg.RateLimit,
			DefaultBatchSize: cfg.DefaultBatchSize,
			Currency:         cfg.DefaultCurrency,
			DuplicateWindow:  cfg.DuplicateWindow,
		},
	)

	return server.NewHandler(runner, deps.Repository, server.Options{
		CronSecret:       cfg.CronSecret,
		DefaultBatchSize: cfg.DefaultBatchSize,
		Production:       cfg.IsProduction(),
	})
}

// initializeServices connects the repository and the optional cache and publisher
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		deps.Repository = store.NewMemory()
	} else {
		repo, err := store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		deps.Repository = repo
	}

	if cfg.MemcacheAddr != "" {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcacheService.Ping(); err != nil {
			logger.LogError("Memcache", err, "memcache at %s unreachable, host cooldown disabled", cfg.MemcacheAddr)
		} else {
			deps.Cache = memcacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.LogError("Redis", err, "redis at %s unreachable, observation events disabled", cfg.RedisAddr)
			redisPublisher.Close()
		} else {
			deps.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return deps, nil
}
