package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Session SessionConfig
	Gateway GatewayConfig
	Relay   RelayConfig
	Users   UsersConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=chat"`
}

// RedisConfig is optional: an empty Addr disables Redis entirely.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type SessionConfig struct {
	// Backend is "mongo" or "redis".
	Backend string `env:"SESSION_BACKEND, default=mongo"`
}

type GatewayConfig struct {
	// RequireLiveSession makes the realtime handshake check the session
	// store in addition to the token signature.
	RequireLiveSession bool          `env:"WS_REQUIRE_LIVE_SESSION, default=false"`
	AllowedOrigins     []string      `env:"WS_ALLOWED_ORIGINS"`
	MaxMessageSize     int64         `env:"WS_MAX_MESSAGE_SIZE, default=65536"`
	RateBurst          int           `env:"WS_RATE_BURST,       default=20"`
	RateInterval       time.Duration `env:"WS_RATE_INTERVAL,    default=100ms"`
	SendQueue          int           `env:"WS_SEND_QUEUE,       default=256"`
}

type RelayConfig struct {
	PersistWorkers int `env:"RELAY_PERSIST_WORKERS, default=4"`
}

type UsersConfig struct {
	AutoVerify bool `env:"USERS_AUTO_VERIFY, default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.Session.Backend {
	case "mongo":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("config: SESSION_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.Gateway.RateBurst <= 0 || c.Gateway.RateInterval <= 0 {
		return errors.New("config: WS_RATE_BURST and WS_RATE_INTERVAL must be positive")
	}
	return nil
}
