// Package config loads dispatch.yml, environment overrides and defaults
// through viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/dispatch/internal/conversion/converters"
	"github.com/conduit-lang/dispatch/internal/web/cache"
	"github.com/conduit-lang/dispatch/internal/web/ratelimit"
)

// EnvPrefix prefixes every environment override (DISPATCH_SERVER_PORT, ...)
const EnvPrefix = "DISPATCH"

// Config represents the dispatch configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Auth       AuthConfig       `mapstructure:"auth"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// CacheConfig represents rendered-output cache configuration
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the redis cache backend connection
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ConversionConfig represents converter options
type ConversionConfig struct {
	DefaultFormat string `mapstructure:"default_format"`
	PrettyJSON    bool   `mapstructure:"pretty_json"`
	XMLRoot       string `mapstructure:"xml_root"`
}

// AuthConfig enables bearer tokens on the AJAX endpoints when Secret is set
type AuthConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	PublicModules []string      `mapstructure:"public_modules"`
	// Clients may exchange their secret for a token at POST /auth/token
	Clients []ClientConfig `mapstructure:"clients"`
}

// ClientConfig is an API client; SecretHash comes from dispatch hash-secret
type ClientConfig struct {
	ID         string   `mapstructure:"id"`
	SecretHash string   `mapstructure:"secret_hash"`
	Modules    []string `mapstructure:"modules"`
}

// Enabled reports whether requests must carry a token
func (a AuthConfig) Enabled() bool {
	return a.Secret != ""
}

// WebSocketConfig represents the /ws endpoint
type WebSocketConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	MaxMessageBytes int64    `mapstructure:"max_message_bytes"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig throttles /ajax and /ws per client. The redis backend
// shares the cache.redis connection settings.
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"`
	Limit      int           `mapstructure:"limit"`
	Window     time.Duration `mapstructure:"window"`
	TrustProxy bool          `mapstructure:"trust_proxy"`
}

// Options returns the limit in the form ratelimit.Open takes
func (r RateLimitConfig) Options() ratelimit.Config {
	config := ratelimit.DefaultConfig()
	config.Limit = r.Limit
	config.Window = r.Window
	return config
}

// Converters returns the options for the built-in converters
func (c ConversionConfig) Converters() converters.Options {
	return converters.Options{
		PrettyJSON: c.PrettyJSON,
		XMLRoot:    c.XMLRoot,
	}
}

// Options returns the cache settings in the form cache.Open takes
func (c CacheConfig) Options() (string, cache.Config, cache.RedisConfig) {
	return c.Backend, cache.Config{DefaultTTL: c.TTL, Prefix: c.Prefix},
		cache.RedisConfig{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("cache.backend", cache.BackendNone)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "dispatch:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("conversion.default_format", converters.JSON)
	v.SetDefault("conversion.pretty_json", false)
	v.SetDefault("conversion.xml_root", "response")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "dispatch")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.public_modules", []string{"system"})

	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.max_message_bytes", 512*1024)
	v.SetDefault("websocket.allowed_origins", []string{})

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.backend", ratelimit.BackendMemory)
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.trust_proxy", false)
}

// Load reads configuration. An explicit path must exist; otherwise
// dispatch.yml or dispatch.yaml in the working directory is optional.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dispatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot use
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.idle_timeout":     cfg.Server.IdleTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got: %s", name, d))
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level))
	}

	switch cfg.Cache.Backend {
	case cache.BackendNone, cache.BackendMemory:
	case cache.BackendRedis:
		if cfg.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be one of none, memory, redis, got: %s", cfg.Cache.Backend))
	}

	if !slices.Contains(converters.WireFormats, cfg.Conversion.DefaultFormat) {
		errs = append(errs, fmt.Errorf("conversion.default_format must be one of %s, got: %s",
			strings.Join(converters.WireFormats, ", "), cfg.Conversion.DefaultFormat))
	}

	if cfg.Auth.Enabled() && len(cfg.Auth.Secret) < 16 {
		errs = append(errs, errors.New("auth.secret must be at least 16 characters"))
	}
	if len(cfg.Auth.Clients) > 0 && !cfg.Auth.Enabled() {
		errs = append(errs, errors.New("auth.clients requires auth.secret"))
	}
	seen := make(map[string]bool, len(cfg.Auth.Clients))
	for i, c := range cfg.Auth.Clients {
		switch {
		case c.ID == "":
			errs = append(errs, fmt.Errorf("auth.clients[%d].id is required", i))
		case seen[c.ID]:
			errs = append(errs, fmt.Errorf("auth.clients[%d].id %q is duplicated", i, c.ID))
		}
		seen[c.ID] = true
		if !strings.HasPrefix(c.SecretHash, "$2") {
			errs = append(errs, fmt.Errorf("auth.clients[%d].secret_hash must be a bcrypt hash", i))
		}
	}
	if cfg.Auth.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must not be negative, got: %s", cfg.Auth.TokenTTL))
	}
	if cfg.WebSocket.MaxMessageBytes < 0 {
		errs = append(errs, fmt.Errorf("websocket.max_message_bytes must not be negative, got: %d", cfg.WebSocket.MaxMessageBytes))
	}

	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Backend {
		case ratelimit.BackendMemory:
		case ratelimit.BackendRedis:
			if cfg.Cache.Redis.Addr == "" {
				errs = append(errs, errors.New("cache.redis.addr is required for the redis rate limit backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("ratelimit.backend must be one of memory, redis, got: %s", cfg.RateLimit.Backend))
		}
		if cfg.RateLimit.Limit <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.limit must be greater than 0, got: %d", cfg.RateLimit.Limit))
		}
		if cfg.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.window must be greater than 0, got: %s", cfg.RateLimit.Window))
		}
	}

	return errors.Join(errs...)
}
