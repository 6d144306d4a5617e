package api_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 10*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 10*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "GritsaFlow", cfg.Auth.Issuer)
	assert.Equal(t, "GritsaFlowClient", cfg.Auth.Audience)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  jwt_secret: from-file
  access_ttl: 5m
store:
  driver: mongo
mongo:
  database: sessions
`), 0o600))
	t.Setenv("AUTH_ACCESS_TTL", "7m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 7*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "sessions", cfg.Mongo.Database)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Store: Store{Driver: DriverPostgres},
			Auth:  Auth{JWTSecret: "x", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"postgres needs dsn", func(c *Config) {}, false},
		{"postgres ok", func(c *Config) { c.DB.DSN = "postgres://x" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, false},
		{"mongo needs uri", func(c *Config) { c.Store.Driver = DriverMongo; c.Mongo.Database = "d" }, false},
		{"mongo ok", func(c *Config) { c.Store.Driver = DriverMongo; c.Mongo.URI = "mongodb://x"; c.Mongo.Database = "d" }, true},
		{"zero ttl", func(c *Config) { c.DB.DSN = "x"; c.Auth.AccessTTL = 0 }, false},
		{"kafka without topic", func(c *Config) { c.DB.DSN = "x"; c.Kafka.Enable = true; c.Kafka.Brokers = []string{"b:9092"} }, false},
		{"trusted proxies ok", func(c *Config) { c.DB.DSN = "x"; c.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1"} }, true},
		{"bad trusted proxy", func(c *Config) { c.DB.DSN = "x"; c.RateLimit.TrustedProxies = []string{"proxy.local"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
