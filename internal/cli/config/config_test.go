package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/dispatch/internal/web/cache"
	"github.com/conduit-lang/dispatch/internal/web/ratelimit"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, cache.BackendNone, cfg.Cache.Backend)
	assert.Equal(t, "json", cfg.Conversion.DefaultFormat)
	assert.Equal(t, "response", cfg.Conversion.Converters().XMLRoot)
	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, []string{"system"}, cfg.Auth.PublicModules)
	assert.True(t, cfg.WebSocket.Enabled)
	assert.Equal(t, int64(512*1024), cfg.WebSocket.MaxMessageBytes)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, ratelimit.BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, 100, cfg.RateLimit.Options().Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Options().Window)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := `
server:
  host: 0.0.0.0
  port: 9090
  read_timeout: 5s
log:
  level: debug
  development: true
cache:
  backend: redis
  ttl: 1m
  redis:
    addr: cache:6379
    db: 2
conversion:
  default_format: yaml
  pretty_json: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatch.yml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "yaml", cfg.Conversion.DefaultFormat)
	assert.True(t, cfg.Conversion.Converters().PrettyJSON)
	assert.Equal(t, "dispatch.yml", filepath.Base(cfg.File))

	backend, cacheCfg, redisCfg := cfg.Cache.Options()
	assert.Equal(t, cache.BackendRedis, backend)
	assert.Equal(t, time.Minute, cacheCfg.DefaultTTL)
	assert.Equal(t, "dispatch:", cacheCfg.Prefix)
	assert.Equal(t, "cache:6379", redisCfg.Addr)
	assert.Equal(t, 2, redisCfg.DB)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, t.TempDir())

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DISPATCH_SERVER_PORT", "9999")
	t.Setenv("DISPATCH_CACHE_BACKEND", "memory")
	t.Setenv("DISPATCH_CONVERSION_DEFAULT_FORMAT", "xml")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, cache.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "xml", cfg.Conversion.DefaultFormat)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatch.yml"), []byte("server: [unclosed"), 0o644))

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8080},
			Log:        LogConfig{Level: "info"},
			Cache:      CacheConfig{Backend: cache.BackendNone},
			Conversion: ConversionConfig{DefaultFormat: "json"},
		}
	}
	require.NoError(t, Validate(valid()))

	disabled := valid()
	disabled.RateLimit.Limit = -5
	require.NoError(t, Validate(disabled), "a disabled limiter is not validated")

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"timeout", func(c *Config) { c.Server.IdleTimeout = -time.Second }, "server.idle_timeout"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis addr", func(c *Config) { c.Cache.Backend = cache.BackendRedis }, "cache.redis.addr"},
		{"default format", func(c *Config) { c.Conversion.DefaultFormat = "apiResponse" }, "conversion.default_format"},
		{"short secret", func(c *Config) { c.Auth.Secret = "hunter2" }, "auth.secret"},
		{"clients need a secret", func(c *Config) {
			c.Auth.Clients = []ClientConfig{{ID: "ci", SecretHash: "$2a$10$abc"}}
		}, "auth.clients requires auth.secret"},
		{"client hash", func(c *Config) {
			c.Auth.Secret = "0123456789abcdef"
			c.Auth.Clients = []ClientConfig{{ID: "ci", SecretHash: "plain"}}
		}, "auth.clients[0].secret_hash"},
		{"duplicate client", func(c *Config) {
			c.Auth.Secret = "0123456789abcdef"
			c.Auth.Clients = []ClientConfig{{ID: "ci", SecretHash: "$2a$10$a"}, {ID: "ci", SecretHash: "$2a$10$b"}}
		}, `auth.clients[1].id "ci" is duplicated`},
		{"token ttl", func(c *Config) { c.Auth.TokenTTL = -time.Hour }, "auth.token_ttl"},
		{"ws message size", func(c *Config) { c.WebSocket.MaxMessageBytes = -1 }, "websocket.max_message_bytes"},
		{"rate limit backend", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Backend: "disk", Limit: 1, Window: time.Second}
		}, "ratelimit.backend"},
		{"rate limit redis addr", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Backend: ratelimit.BackendRedis, Limit: 1, Window: time.Second}
		}, "redis rate limit backend"},
		{"rate limit", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Backend: ratelimit.BackendMemory, Window: time.Second}
		}, "ratelimit.limit"},
		{"rate limit window", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Backend: ratelimit.BackendMemory, Limit: 1}
		}, "ratelimit.window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	err := Validate(&Config{Log: LogConfig{Level: "x"}, Cache: CacheConfig{Backend: "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "cache.backend")
	assert.Contains(t, err.Error(), "conversion.default_format")
}

func TestLoad_AuthSection(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "auth.yml")
	content := `
auth:
  secret: 0123456789abcdef0123
  token_ttl: 2h
  public_modules: [system, status]
  clients:
    - id: ci-bot
      secret_hash: $2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
      modules: [contacts]
websocket:
  enabled: false
  allowed_origins: ["https://app.example.com"]
ratelimit:
  enabled: true
  limit: 10
  window: 30s
  trust_proxy: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Enabled())
	assert.Equal(t, "dispatch", cfg.Auth.Issuer)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"system", "status"}, cfg.Auth.PublicModules)
	require.Len(t, cfg.Auth.Clients, 1)
	assert.Equal(t, "ci-bot", cfg.Auth.Clients[0].ID)
	assert.Equal(t, []string{"contacts"}, cfg.Auth.Clients[0].Modules)
	assert.False(t, cfg.WebSocket.Enabled)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.WebSocket.AllowedOrigins)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.RateLimit.TrustProxy)
	assert.Equal(t, ratelimit.Config{Limit: 10, Window: 30 * time.Second, Prefix: "dispatch:ratelimit:"}, cfg.RateLimit.Options())
}
