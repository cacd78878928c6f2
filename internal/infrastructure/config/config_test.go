package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "mongo", cfg.Session.Backend)
	assert.False(t, cfg.Gateway.RequireLiveSession)
	assert.Equal(t, 4, cfg.Relay.PersistWorkers)
	assert.Equal(t, int64(65536), cfg.Gateway.MaxMessageSize)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":              "secret",
		"ENV":                     "production",
		"SESSION_BACKEND":         "redis",
		"REDIS_ADDR":              "redis:6379",
		"WS_REQUIRE_LIVE_SESSION": "true",
		"WS_ALLOWED_ORIGINS":      "https://a.example,https://b.example",
		"USERS_AUTO_VERIFY":       "true",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.True(t, cfg.Gateway.RequireLiveSession)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Gateway.AllowedOrigins)
	assert.True(t, cfg.Users.AutoVerify)
}

func TestLoad_MissingSecretFails(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			JWTSecret: "secret",
			Session:   SessionConfig{Backend: "mongo"},
			Gateway:   GatewayConfig{RateBurst: 1, RateInterval: time.Second},
		}
	}

	cases := map[string]func(*Config){
		"redis backend without addr": func(c *Config) { c.Session.Backend = "redis" },
		"unknown backend":            func(c *Config) { c.Session.Backend = "etcd" },
		"zero burst":                 func(c *Config) { c.Gateway.RateBurst = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	ok := base()
	assert.NoError(t, ok.Validate())
}
