package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctordirectory/backend/internal/adapters/database"
	"github.com/zatekoja/doctordirectory/backend/internal/adapters/events"
	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/doctordirectory/backend/pkg/config"
)

// The indexer builds the doctor n-gram index from the directory, prints its
// statistics and optionally tells running API instances to rebuild theirs.
func main() {
	var (
		notify       bool
		intervalFlag string
	)
	flag.BoolVar(&notify, "notify", false, "publish a reindex roster event after building")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		var err error
		interval, err = time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			fmt.Fprintf(os.Stderr, "invalid interval %q\n", intervalValue)
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, notify); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			return
		}

		log.Info().Dur("interval", interval).Msg("Reindex complete, waiting for next run")
		select {
		case <-ctx.Done():
			log.Info().Msg("Indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, notify bool) error {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	doctorRepo := database.NewDoctorAdapter(pgClient)
	idx := index.NewDoctorIndex(index.Mode(cfg.Matching.IndexMode))

	start := time.Now()
	if _, err := idx.EnsureBuilt(ctx, doctorRepo.ListAvailable); err != nil {
		return err
	}
	log.Info().
		Int("doctors", idx.Size()).
		Str("mode", string(idx.Mode())).
		Dur("duration", time.Since(start)).
		Msg("Doctor index built")

	stats := idx.Stats()
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(stats); err != nil {
		return err
	}

	if !notify {
		return nil
	}
	return publishReindex(ctx, cfg)
}

func publishReindex(ctx context.Context, cfg *config.Config) error {
	if cfg.Matching.CacheBackend != config.CacheBackendRedis {
		log.Warn().Msg("Reindex notification needs the redis backend, skipping")
		return nil
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	bus := events.NewRedisEventBus(redisClient)
	defer bus.Close()

	event := entities.NewRosterEvent("", entities.RosterEventReindex)
	if err := bus.Publish(ctx, providers.EventChannelRosterUpdates, event); err != nil {
		return err
	}
	log.Info().Str("event_id", event.ID).Msg("Reindex event published")
	return nil
}
