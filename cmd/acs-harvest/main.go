package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/acs-harvest/internal/config"
	"github.com/Sternrassler/acs-harvest/pkg/catalog"
	"github.com/Sternrassler/acs-harvest/pkg/client"
	"github.com/Sternrassler/acs-harvest/pkg/export"
	"github.com/Sternrassler/acs-harvest/pkg/harvest"
	"github.com/Sternrassler/acs-harvest/pkg/logging"
	"github.com/Sternrassler/acs-harvest/pkg/metrics"
	"github.com/Sternrassler/acs-harvest/pkg/publish"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	runID := publish.NewRunID()
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
		RunID:  runID,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runID); err != nil {
		log.Error().Err(err).Msg("Harvest failed")
		stop()
		os.Exit(1)
	}
}

// run performs one complete harvest: fetch every scope, write the output
// file once, then optionally publish it.
func run(ctx context.Context, cfg config.Config, runID string) error {
	start := time.Now()

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Start(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	redisClient := connectRedis(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		var err error
		if cat, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
			return err
		}
	}

	clientCfg := client.DefaultConfig()
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.APIKey = cfg.APIKey
	clientCfg.Geography = cfg.Geography
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.Timeout
	clientCfg.RateLimit = cfg.RateLimit
	clientCfg.Retry.MaxAttempts = cfg.MaxAttempts
	clientCfg.Redis = redisClient
	clientCfg.CacheTTL = cfg.CacheTTL

	acs, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create census client: %w", err)
	}
	defer acs.Close()

	h, err := harvest.New(acs, cat, harvest.Config{
		BatchSize:       cfg.FieldsPerQuery,
		Concurrency:     cfg.Concurrency,
		ParallelBatches: cfg.ParallelBatches,
		Join:            cfg.Join,
		States:          cfg.States,
		ScopeTimeout:    cfg.ScopeTimeout,
	})
	if err != nil {
		return fmt.Errorf("create harvester: %w", err)
	}

	records, err := h.Run(ctx)
	if err != nil {
		return err
	}

	if err := export.WriteFile(cfg.Output, cfg.Format, records); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Output, err)
	}

	if cfg.PublishEnabled() {
		store, err := publish.NewS3Store(publish.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return err
		}
		p, err := publish.New(store, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return err
		}
		if _, err := p.Publish(ctx, cfg.Output, runID); err != nil {
			return fmt.Errorf("publish %s: %w", cfg.Output, err)
		}
	}

	log.Info().
		Int("records", len(records)).
		Str("output", cfg.Output).
		Dur("duration", time.Since(start)).
		Msg("Harvest finished")

	return nil
}

// connectRedis returns a client for rawURL, or nil when caching is disabled
// or Redis is unreachable. Accepts redis:// URLs and bare host:port.
func connectRedis(ctx context.Context, rawURL string) *redis.Client {
	if rawURL == "" {
		return nil
	}

	opts := &redis.Options{Addr: rawURL}
	if strings.Contains(rawURL, "://") {
		parsed, err := redis.ParseURL(rawURL)
		if err != nil {
			log.Warn().Err(err).Msg("Invalid REDIS_URL, response cache disabled")
			return nil
		}
		opts = parsed
	}

	redisClient := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, response cache disabled")
		redisClient.Close()
		return nil
	}

	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return redisClient
}
