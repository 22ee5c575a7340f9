package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/emailguard/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig                      `yaml:"server"`
	Logging    LoggingConfig                     `yaml:"logging"`
	DNS        DNSConfig                         `yaml:"dns"`
	Probe      ProbeConfig                       `yaml:"probe"`
	Bulk       BulkConfig                        `yaml:"bulk"`
	Plans      map[domain.Plan]domain.PlanLimits `yaml:"plans"`
	Accounts   AccountsConfig                    `yaml:"accounts"`
	Redis      RedisConfig                       `yaml:"redis"`
	Database   DatabaseConfig                    `yaml:"database"`
	Disposable DisposableConfig                  `yaml:"disposable"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                   int    `yaml:"port"`
	Host                   string `yaml:"host"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// Addr returns host:port for the listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether addresses and keys are masked in logs (default true).
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// DNSConfig holds resolver settings. An empty nameserver list means the
// system resolv.conf.
type DNSConfig struct {
	Nameservers    []string `yaml:"nameservers"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Retries        int      `yaml:"retries"`
	CacheSize      int      `yaml:"cache_size"`
}

func (c DNSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProbeConfig holds SMTP mailbox probe settings.
type ProbeConfig struct {
	Enabled              *bool   `yaml:"enabled"`
	Port                 int     `yaml:"port"`
	HeloName             string  `yaml:"helo_name"`
	MailFrom             string  `yaml:"mail_from"`
	SingleTimeoutSeconds int     `yaml:"single_timeout_seconds"`
	BulkTimeoutSeconds   int     `yaml:"bulk_timeout_seconds"`
	RatePerSecond        float64 `yaml:"rate_per_second"`
	Burst                int     `yaml:"burst"`
}

// IsEnabled reports whether mailbox probing may run at all (default true).
func (c ProbeConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c ProbeConfig) SingleTimeout() time.Duration {
	return time.Duration(c.SingleTimeoutSeconds) * time.Second
}

func (c ProbeConfig) BulkTimeout() time.Duration {
	return time.Duration(c.BulkTimeoutSeconds) * time.Second
}

// BulkConfig holds bulk validation settings.
type BulkConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// AccountsConfig selects the account store and the keys seeded at startup.
type AccountsConfig struct {
	Store      string    `yaml:"store"` // memory, redis or postgres
	PeriodDays int       `yaml:"period_days"`
	Seed       []SeedKey `yaml:"seed"`
}

func (c AccountsConfig) Period() time.Duration {
	return time.Duration(c.PeriodDays) * 24 * time.Hour
}

// SeedKey is an API key created at startup if it does not already exist.
type SeedKey struct {
	Key  string      `yaml:"key"`
	Plan domain.Plan `yaml:"plan"`
}

// RedisConfig holds the Redis connection used by the redis account store.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// DatabaseConfig holds the Postgres connection used by the postgres store.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// DisposableConfig extends the built-in disposable domain list.
type DisposableConfig struct {
	ExtraDomains []string `yaml:"extra_domains"`
	DomainsFile  string   `yaml:"domains_file"`
	FeedURL      string   `yaml:"feed_url"` // fetched once at startup
	FeedRetries  int      `yaml:"feed_retries"`
}

// Account store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Load reads and parses the configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		// A full bulk batch of mailbox probes must fit.
		cfg.Server.WriteTimeoutSeconds = 300
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.DNS.TimeoutSeconds == 0 {
		cfg.DNS.TimeoutSeconds = 3
	}
	if cfg.DNS.Retries == 0 {
		cfg.DNS.Retries = 1
	}
	if cfg.DNS.CacheSize == 0 {
		cfg.DNS.CacheSize = 1000
	}
	if cfg.Probe.Port == 0 {
		cfg.Probe.Port = 25
	}
	if cfg.Probe.MailFrom == "" {
		cfg.Probe.MailFrom = "verify@emailguard.com"
	}
	if cfg.Probe.SingleTimeoutSeconds == 0 {
		cfg.Probe.SingleTimeoutSeconds = 5
	}
	if cfg.Probe.BulkTimeoutSeconds == 0 {
		cfg.Probe.BulkTimeoutSeconds = 3
	}
	if cfg.Bulk.Concurrency == 0 {
		cfg.Bulk.Concurrency = 10
	}
	if cfg.Accounts.Store == "" {
		cfg.Accounts.Store = StoreMemory
	}
	if cfg.Accounts.PeriodDays == 0 {
		cfg.Accounts.PeriodDays = 30
	}
	if cfg.Accounts.Seed == nil {
		cfg.Accounts.Seed = []SeedKey{
			{Key: "demo_key_123", Plan: domain.PlanFree},
			{Key: "starter_key_456", Plan: domain.PlanStarter},
		}
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Disposable.FeedRetries == 0 {
		cfg.Disposable.FeedRetries = 2
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Accounts.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("config: accounts.store %q requires database.url", c.Accounts.Store)
		}
	default:
		return fmt.Errorf("config: unknown accounts.store %q", c.Accounts.Store)
	}
	for p, l := range c.Plans {
		if !p.Valid() {
			return fmt.Errorf("config: unknown plan %q", p)
		}
		if l.Quota < 0 || l.BulkCap < 0 {
			return fmt.Errorf("config: plan %q has negative limits", p)
		}
	}
	for _, s := range c.Accounts.Seed {
		if strings.TrimSpace(s.Key) == "" {
			return fmt.Errorf("config: seed key must not be empty")
		}
		if !s.Plan.Valid() {
			return fmt.Errorf("config: seed key has unknown plan %q", s.Plan)
		}
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ACCOUNT_STORE"); v != "" {
		cfg.Accounts.Store = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DNS_NAMESERVERS"); v != "" {
		var ns []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				ns = append(ns, s)
			}
		}
		cfg.DNS.Nameservers = ns
	}
	if v := os.Getenv("PROBE_MAIL_FROM"); v != "" {
		cfg.Probe.MailFrom = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
