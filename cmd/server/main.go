package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/emailguard/internal/api"
	"github.com/ignite/emailguard/internal/classify"
	"github.com/ignite/emailguard/internal/config"
	"github.com/ignite/emailguard/internal/pkg/httpretry"
	"github.com/ignite/emailguard/internal/pkg/logger"
	"github.com/ignite/emailguard/internal/probe"
	"github.com/ignite/emailguard/internal/repository/memory"
	"github.com/ignite/emailguard/internal/repository/postgres"
	redisrepo "github.com/ignite/emailguard/internal/repository/redis"
	"github.com/ignite/emailguard/internal/resolver"
	"github.com/ignite/emailguard/internal/service/ratelimit"
	"github.com/ignite/emailguard/internal/service/validation"
)

const defaultConfigPath = "config/config.yaml"

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	ln.Close()
	return nil
}

func configPath() string {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		// Run on defaults plus env overrides.
		return ""
	}
	return path
}

func main() {
	cfg, err := config.LoadFromEnv(configPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		logger.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Account store
	repo, closeRepo, err := openAccountStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open account store", "store", cfg.Accounts.Store, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	limiter := ratelimit.NewService(repo, ratelimit.Options{
		Plans:  cfg.Plans,
		Period: cfg.Accounts.Period(),
	})
	for _, s := range cfg.Accounts.Seed {
		if err := limiter.Seed(ctx, s.Key, s.Plan); err != nil {
			logger.Error("failed to seed api key", "api_key", s.Key, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("account store ready", "store", cfg.Accounts.Store, "seeded", len(cfg.Accounts.Seed))

	// DNS
	dnsClient := resolver.NewDNSClient(resolver.ClientConfig{
		Nameservers: cfg.DNS.Nameservers,
		Timeout:     cfg.DNS.Timeout(),
		Retries:     cfg.DNS.Retries,
	})
	cache := resolver.NewCache(cfg.DNS.CacheSize)
	res := resolver.New(dnsClient, cache, cfg.DNS.Timeout())
	logger.Info("dns resolver ready", "nameservers", fmt.Sprint(dnsClient.Config().Nameservers), "cache_size", cfg.DNS.CacheSize)

	// Classification
	disposable, err := disposableSet(ctx, cfg.Disposable)
	if err != nil {
		logger.Error("failed to load disposable domains", "error", err)
		os.Exit(1)
	}

	// Mailbox probe; a nil prober disables probing entirely.
	var prober validation.MailboxProber
	if cfg.Probe.IsEnabled() {
		prober = probe.New(res, probe.Config{
			Port:          cfg.Probe.Port,
			HeloName:      cfg.Probe.HeloName,
			MailFrom:      cfg.Probe.MailFrom,
			RatePerSecond: cfg.Probe.RatePerSecond,
			Burst:         cfg.Probe.Burst,
		})
	} else {
		logger.Warn("mailbox probing disabled")
	}

	validator := validation.NewService(res, prober, disposable, classify.DefaultRoles(), validation.Options{
		SingleProbeTimeout: cfg.Probe.SingleTimeout(),
		BulkProbeTimeout:   cfg.Probe.BulkTimeout(),
		BulkConcurrency:    cfg.Bulk.Concurrency,
	})

	handlers := api.NewHandlers(validator, limiter)
	handlers.SetDNSCache(cache)

	server := &http.Server{
		Addr:         addr,
		Handler:      api.SetupRoutes(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	cancel()

	logger.Info("server stopped")
}

// openAccountStore returns the repository selected by accounts.store and a
// function that releases its connections.
func openAccountStore(ctx context.Context, cfg *config.Config) (ratelimit.Repository, func(), error) {
	switch cfg.Accounts.Store {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisrepo.NewAccountRepo(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("database ping: %w", err)
		}
		repo := postgres.NewAccountRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil

	default:
		return memory.NewAccountRepo(), func() {}, nil
	}
}

func disposableSet(ctx context.Context, cfg config.DisposableConfig) (classify.DisposableSet, error) {
	extra := append([]string(nil), cfg.ExtraDomains...)
	if cfg.DomainsFile != "" {
		fromFile, err := classify.LoadDomainsFile(cfg.DomainsFile)
		if err != nil {
			return classify.DisposableSet{}, err
		}
		extra = append(extra, fromFile...)
	}
	if cfg.FeedURL != "" {
		fetchCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		client := httpretry.NewRetryClient(&http.Client{Timeout: 15 * time.Second}, cfg.FeedRetries)
		fromFeed, err := classify.FetchDomains(fetchCtx, client, cfg.FeedURL)
		if err != nil {
			// The built-in list still applies.
			logger.Warn("disposable domain feed unavailable", "url", cfg.FeedURL, "error", err)
		} else {
			extra = append(extra, fromFeed...)
		}
	}
	set := classify.NewDisposableSet(extra...)
	logger.Info("disposable domains loaded", "count", set.Len())
	return set, nil
}
