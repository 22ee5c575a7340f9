package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/emailguard/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"

logging:
  level: debug
  redact_pii: false

dns:
  nameservers: ["9.9.9.9:53"]
  timeout_seconds: 2
  cache_size: 50

probe:
  enabled: false
  helo_name: "mx.emailguard.test"
  mail_from: "check@emailguard.test"
  rate_per_second: 5
  burst: 2

bulk:
  concurrency: 4

plans:
  free:
    quota: 250
    bulk_cap: 25

accounts:
  store: redis
  period_days: 7
  seed:
    - key: "abc"
      plan: pro

redis:
  url: "redis://cache:6379/1"
  key_prefix: "eg"

disposable:
  extra_domains: ["burner.test"]
  feed_url: "https://feeds.example.com/disposable.txt"
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Redact())

	assert.Equal(t, []string{"9.9.9.9:53"}, cfg.DNS.Nameservers)
	assert.Equal(t, 2*time.Second, cfg.DNS.Timeout())
	assert.Equal(t, 1, cfg.DNS.Retries)
	assert.Equal(t, 50, cfg.DNS.CacheSize)

	assert.False(t, cfg.Probe.IsEnabled())
	assert.Equal(t, "mx.emailguard.test", cfg.Probe.HeloName)
	assert.Equal(t, "check@emailguard.test", cfg.Probe.MailFrom)
	assert.Equal(t, 5.0, cfg.Probe.RatePerSecond)
	assert.Equal(t, 2, cfg.Probe.Burst)

	assert.Equal(t, 4, cfg.Bulk.Concurrency)
	assert.Equal(t, domain.PlanLimits{Quota: 250, BulkCap: 25}, cfg.Plans[domain.PlanFree])

	assert.Equal(t, StoreRedis, cfg.Accounts.Store)
	assert.Equal(t, 7*24*time.Hour, cfg.Accounts.Period())
	require.Len(t, cfg.Accounts.Seed, 1)
	assert.Equal(t, SeedKey{Key: "abc", Plan: domain.PlanPro}, cfg.Accounts.Seed[0])

	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "eg", cfg.Redis.KeyPrefix)
	assert.Equal(t, []string{"burner.test"}, cfg.Disposable.ExtraDomains)
	assert.Equal(t, "https://feeds.example.com/disposable.txt", cfg.Disposable.FeedURL)
	assert.Equal(t, 2, cfg.Disposable.FeedRetries)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redact())
	assert.Equal(t, 3*time.Second, cfg.DNS.Timeout())
	assert.Equal(t, 1000, cfg.DNS.CacheSize)
	assert.True(t, cfg.Probe.IsEnabled())
	assert.Equal(t, 25, cfg.Probe.Port)
	assert.Equal(t, "verify@emailguard.com", cfg.Probe.MailFrom)
	assert.Equal(t, 5*time.Second, cfg.Probe.SingleTimeout())
	assert.Equal(t, 3*time.Second, cfg.Probe.BulkTimeout())
	assert.Equal(t, 10, cfg.Bulk.Concurrency)
	assert.Equal(t, StoreMemory, cfg.Accounts.Store)
	assert.Equal(t, 30*24*time.Hour, cfg.Accounts.Period())
	assert.Equal(t, []SeedKey{
		{Key: "demo_key_123", Plan: domain.PlanFree},
		{Key: "starter_key_456", Plan: domain.PlanStarter},
	}, cfg.Accounts.Seed)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "accounts:\n  store: mongo\n"))
	assert.ErrorContains(t, err, "unknown accounts.store")

	_, err = Load(writeConfig(t, "accounts:\n  store: postgres\n"))
	assert.ErrorContains(t, err, "database.url")

	_, err = Load(writeConfig(t, "plans:\n  gold:\n    quota: 1\n"))
	assert.ErrorContains(t, err, "unknown plan")

	_, err = Load(writeConfig(t, "accounts:\n  seed:\n    - key: x\n      plan: gold\n"))
	assert.ErrorContains(t, err, "unknown plan")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SERVER_HOST", "10.0.0.1")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ACCOUNT_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/emailguard?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://other:6379/2")
	t.Setenv("DNS_NAMESERVERS", "1.1.1.1, 8.8.4.4:53 ,")
	t.Setenv("PROBE_MAIL_FROM", "probe@example.org")

	cfg, err := LoadFromEnv(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, "10.0.0.1:9999", cfg.Server.Addr())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, StorePostgres, cfg.Accounts.Store)
	assert.Equal(t, "postgres://u:p@db/emailguard?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "redis://other:6379/2", cfg.Redis.URL)
	assert.Equal(t, []string{"1.1.1.1", "8.8.4.4:53"}, cfg.DNS.Nameservers)
	assert.Equal(t, "probe@example.org", cfg.Probe.MailFrom)
}

func TestLoadFromEnvBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")

	_, err := LoadFromEnv(writeConfig(t, "{}\n"))
	assert.ErrorContains(t, err, "invalid PORT")
}
