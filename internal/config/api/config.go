package api_config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/repository/cache"
	mg "github.com/ujjwal-capsitech/GritsaFlow/internal/repository/mongo"
	pg "github.com/ujjwal-capsitech/GritsaFlow/internal/repository/postgres"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type Store struct {
	Driver        string        `mapstructure:"driver"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Auth struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	Issuer       string        `mapstructure:"issuer"`
	Audience     string        `mapstructure:"audience"`
	AccessTTL    time.Duration `mapstructure:"access_ttl"`
	RefreshTTL   time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost   int           `mapstructure:"bcrypt_cost"`
	CookieDomain string        `mapstructure:"cookie_domain"`
	CookiePath   string        `mapstructure:"cookie_path"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type Cache struct {
	Enable      bool          `mapstructure:"enable"`
	TTL         time.Duration `mapstructure:"ttl"`
	NumCounters int64         `mapstructure:"num_counters"`
	MaxCost     int64         `mapstructure:"max_cost"`
}

func (c *Cache) AsCacheConfig() cache.Config {
	return cache.Config{TTL: c.TTL, NumCounters: c.NumCounters, MaxCost: c.MaxCost}
}

type RateLimit struct {
	Enable    bool          `mapstructure:"enable"`
	PerSecond float64       `mapstructure:"per_second"`
	Burst     int           `mapstructure:"burst"`
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	// TrustedProxies lists addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Kafka struct {
	Enable       bool          `mapstructure:"enable"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	Workers      int           `mapstructure:"workers"`
	QueueSize    int           `mapstructure:"queue_size"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig(version string) *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:         oc.Enable,
		Endpoint:       oc.OTLPEndpoint,
		ServiceName:    oc.ServiceName,
		ServiceVersion: version,
		SampleRatio:    oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig(app App) obs.LogConfig {
	return obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "gritsaflow/" + app.Name,
		Env:    app.Env,
		Ver:    app.Version,
	}
}

type Seed struct {
	AdminUserName string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	AdminName     string `mapstructure:"admin_name"`
	AdminEmail    string `mapstructure:"admin_email"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Server    Server    `mapstructure:"server"`
	Store     Store     `mapstructure:"store"`
	DB        pg.Config `mapstructure:"db"`
	Mongo     mg.Config `mapstructure:"mongo"`
	Auth      Auth      `mapstructure:"auth"`
	Cache     Cache     `mapstructure:"cache"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
	CORS      CORS      `mapstructure:"cors"`
	Kafka     Kafka     `mapstructure:"kafka"`
	OTEL      OTEL      `mapstructure:"otel"`
	Log       Log       `mapstructure:"log"`
	Seed      Seed      `mapstructure:"seed"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

// Validate enforces what the service needs before it can start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrConfig("auth.jwt_secret is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return ErrConfig("auth.access_ttl and auth.refresh_ttl must be positive")
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			return ErrConfig("db.dsn is required for the postgres driver")
		}
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return ErrConfig("mongo.uri and mongo.database are required for the mongo driver")
		}
	default:
		return ErrConfig(fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	for _, p := range c.RateLimit.TrustedProxies {
		if !validProxy(strings.TrimSpace(p)) {
			return ErrConfig(fmt.Sprintf("ratelimit.trusted_proxies: invalid entry %q", p))
		}
	}
	if c.Kafka.Enable && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return ErrConfig("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
