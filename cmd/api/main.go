package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctordirectory/backend/internal/adapters/cache"
	"github.com/zatekoja/doctordirectory/backend/internal/adapters/database"
	"github.com/zatekoja/doctordirectory/backend/internal/adapters/events"
	"github.com/zatekoja/doctordirectory/backend/internal/api/handlers"
	"github.com/zatekoja/doctordirectory/backend/internal/api/routes"
	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/application/services"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
	"github.com/zatekoja/doctordirectory/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableOTelLogs()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	doctorRepo := database.NewDoctorAdapter(pgClient)
	patientRepo := database.NewPatientAdapter(pgClient)
	appointmentRepo := database.NewAppointmentAdapter(pgClient)

	// Cache and roster events share a backend so invalidations reach every instance
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if cfg.Matching.CacheBackend == config.CacheBackendRedis {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	} else {
		cacheProvider = cache.NewMemoryAdapter(clock.WallClock)
		eventBus = events.NewMemoryEventBus()
	}
	log.Info().Str("backend", cfg.Matching.CacheBackend).Msg("Result cache initialized")

	doctorIndex := index.NewDoctorIndex(index.Mode(cfg.Matching.IndexMode))
	resultCache := services.NewResultCache(cacheProvider, metrics)
	mapper := services.NewSymptomSpecialityMapper(cfg.Matching.SpecialityInferenceCutoff)

	searchService := services.NewDoctorSearchService(doctorRepo, doctorIndex, resultCache, metrics, services.DoctorSearchConfig{
		CacheTTL:         cfg.Matching.SearchCacheTTL,
		SimilarThreshold: cfg.Matching.SimilarDoctorThreshold,
		DefaultLimit:     cfg.Matching.DefaultLimit,
	})
	matchService := services.NewPatientMatchService(patientRepo, doctorRepo, doctorIndex, mapper, resultCache, metrics, services.PatientMatchConfig{
		CacheTTL:      cfg.Matching.MatchCacheTTL,
		AlwaysRebuild: cfg.Matching.AlwaysRebuildOnMatch,
		DefaultLimit:  cfg.Matching.DefaultLimit,
	})
	similarPatientService := services.NewSimilarPatientService(appointmentRepo, cfg.Matching.DefaultLimit)
	engine := services.NewMatchingEngine(searchService, matchService, similarPatientService, resultCache)

	invalidationService := services.NewIndexInvalidationService(doctorIndex, resultCache, eventBus)
	if err := invalidationService.Start(); err != nil {
		log.Warn().Err(err).Msg("Index invalidation disabled")
		invalidationService = nil
	}

	// Warm the index so the first request does not pay for the build
	if _, err := engine.RebuildIndex(ctx, nil); err != nil {
		log.Warn().Err(err).Msg("Initial index build failed; it will be retried on first use")
	}

	router := routes.NewRouter(handlers.NewMatchingHandler(engine), metrics, cfg.Server.AllowedOrigins)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if invalidationService != nil {
		invalidationService.Stop()
	}
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
