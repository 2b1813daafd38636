package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/facetedsearch/internal/adapters/cache"
	"github.com/zatekoja/facetedsearch/internal/adapters/database"
	"github.com/zatekoja/facetedsearch/internal/adapters/events"
	"github.com/zatekoja/facetedsearch/internal/adapters/search"
	"github.com/zatekoja/facetedsearch/internal/api/handlers"
	"github.com/zatekoja/facetedsearch/internal/api/middleware"
	"github.com/zatekoja/facetedsearch/internal/api/routes"
	"github.com/zatekoja/facetedsearch/internal/application/services"
	"github.com/zatekoja/facetedsearch/internal/domain/providers"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/clients/solr"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
	"github.com/zatekoja/facetedsearch/pkg/secrets"
)

func main() {
	// Export backend credentials from Vault before reading the environment
	vaultCtx, vaultCancel := context.WithTimeout(context.Background(), 30*time.Second)
	vaultResult, err := secrets.ApplyVaultSecrets(vaultCtx, secrets.LoadVaultConfigFromEnv())
	vaultCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load vault secrets: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Environment, cfg.Log.Level)
	logger := observability.GetLogger()
	if vaultResult.Enabled {
		logger.Info().
			Str("path", vaultResult.Path).
			Int("loaded", vaultResult.Loaded).
			Int("skipped", vaultResult.Skipped).
			Msg("vault secrets applied")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	backend, err := newSearchBackend(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Search.Backend).Msg("failed to initialize search backend")
	}
	logger.Info().Str("backend", cfg.Search.Backend).Msg("search backend ready")

	// Response cache: Redis when configured, otherwise in-process
	var cacheProvider providers.CacheProvider
	var invalidation *services.CacheInvalidationService
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient.Client())

			// Index updates published by the indexer flush every instance's cache
			eventBus := events.NewRedisEventBus(redisClient.Client())
			defer eventBus.Close()
			invalidation = services.NewCacheInvalidationService(cacheProvider, eventBus, instanceName(cfg))
			if err := invalidation.Start(); err != nil {
				logger.Warn().Err(err).Msg("cache invalidation disabled")
				invalidation = nil
			} else {
				defer invalidation.Stop()
			}
		}
	}
	if cacheProvider == nil {
		memoryCache, err := cache.NewMemoryAdapter(cfg.Redis.MemoryCacheSize)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize memory cache")
		}
		cacheProvider = memoryCache
	}
	cacheMiddleware := middleware.NewCacheMiddleware(cacheProvider, metrics, cfg.Redis.CacheTTLSeconds)

	// Search analytics are optional and need PostgreSQL
	var analyticsService *services.SearchAnalyticsService
	var analyticsHandler *handlers.AnalyticsHandler
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, search analytics disabled")
		} else {
			defer pgClient.Close()
			adapter := database.NewSearchAnalyticsAdapter(pgClient)
			if err := adapter.EnsureSchema(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to create analytics schema")
			}
			analyticsService = services.NewSearchAnalyticsService(adapter)
			analyticsHandler = handlers.NewAnalyticsHandler(analyticsService)
		}
	}

	searchHandler := handlers.NewSearchHandler(
		backend,
		cfg.Search.Backend,
		cfg.Facets,
		analyticsService,
		metrics,
		time.Duration(cfg.Search.TimeoutSeconds)*time.Second,
	)

	router := routes.NewRouter(
		searchHandler,
		analyticsHandler,
		cacheMiddleware,
		invalidation,
		metrics,
		cfg.Server,
		cfg.Redis.CacheTTLSeconds,
	)
	handler := router.SetupRoutes()

	if analyticsService != nil && cfg.Redis.WarmIntervalSeconds > 0 {
		warming := services.NewCacheWarmingService(analyticsService, router.CachedHandler(), cfg.Redis.WarmKeywords)
		warming.StartPeriodicWarming(ctx, time.Duration(cfg.Redis.WarmIntervalSeconds)*time.Second)
	}

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
}

// instanceName identifies this process in published events
func instanceName(cfg *config.Config) string {
	host, err := os.Hostname()
	if err != nil {
		return cfg.OTEL.ServiceName
	}
	return cfg.OTEL.ServiceName + "@" + host
}

// newSearchBackend connects the configured search engine
func newSearchBackend(cfg *config.Config) (repositories.SearchBackend, error) {
	switch cfg.Search.Backend {
	case config.BackendTypesense:
		client, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			return nil, err
		}
		return search.NewTypesenseAdapter(client, client.QueryBy(), cfg.Facets.IndexedFields), nil
	default:
		client, err := solr.NewClient(&cfg.Solr)
		if err != nil {
			return nil, err
		}
		return search.NewSolrAdapter(client, cfg.Facets.IndexedFields), nil
	}
}
