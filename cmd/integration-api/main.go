package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/api"
	"github.com/edvin/dataconnect/internal/config"
	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/core"
	"github.com/edvin/dataconnect/internal/db"
	"github.com/edvin/dataconnect/internal/logging"
	"github.com/edvin/dataconnect/internal/metrics"
	"github.com/edvin/dataconnect/internal/schemacache"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	maxConnsFlag := flag.Int("max-conns", 20, "Maximum database connections")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("integration-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, int32(*maxConnsFlag))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool, "integration-api")

	cache, closeCache, err := newSchemaCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up schema cache")
	}
	defer closeCache()

	registry := connector.NewDefaultRegistry(logger)
	services := core.NewServices(pool, registry, cache, logger)
	srv := api.NewServer(logger, pool, services)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Interface("kinds", registry.Kinds()).Msg("starting integration API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newSchemaCache picks Redis when REDIS_URL is set and an in-process store
// otherwise. The in-process store is purged in the background until ctx ends.
func newSchemaCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (schemacache.Store, func(), error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			// Misses are tolerated, so an unreachable Redis only degrades caching.
			logger.Warn().Err(err).Msg("redis ping failed, schema cache will miss until it recovers")
		}
		logger.Info().Str("addr", opts.Addr).Msg("using redis schema cache")
		return schemacache.NewRedisStore(client, logger, nil), func() { client.Close() }, nil
	}

	store := schemacache.NewMemoryStore(nil)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := store.Purge(); n > 0 {
					logger.Debug().Int("purged", n).Msg("schema cache purge")
				}
			}
		}
	}()
	logger.Info().Msg("using in-process schema cache")
	return store, func() {}, nil
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	company := fs.String("company", "", "Company the key acts for")
	client := fs.String("client", "", "Client the key acts for")
	admin := fs.Bool("platform-admin", false, "Grant platform admin access")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fmt.Fprintln(os.Stderr, "usage: integration-api create-api-key --name <name> [--company <id>] [--client <id>] [--platform-admin]")
		os.Exit(1)
	}
	if *company == "" && !*admin {
		fmt.Fprintln(os.Stderr, "error: --company is required unless --platform-admin is set")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name, access.Principal{
		CompanyID:       *company,
		ClientID:        *client,
		IsPlatformAdmin: *admin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key, it will not be shown again.\n")
}
