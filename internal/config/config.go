package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	pkgconfig "github.com/utafrali/TourGo/pkg/config"
)

// Tour data sources.
const (
	SourceCatalog  = "catalog"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the tour service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"tour-service"`

	// HTTP server
	HTTPPort        int           `env:"TOUR_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PprofCIDRs      []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	// Per-client limit on opening sessions and submitting reviews. 0 disables.
	SubmitRateLimit float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"1"`
	SubmitBurst     int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	// Tour source: "catalog" reads a YAML file, "postgres" reads the database.
	TourSource        string `env:"TOUR_SOURCE" envDefault:"catalog"`
	CatalogPath       string `env:"CATALOG_PATH" envDefault:"data/tours.yaml"`
	CatalogReloadCron string `env:"CATALOG_RELOAD_CRON" envDefault:"@every 5m"`

	// PostgreSQL
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"tours"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"tours_secret"`
	DBName     string `env:"DB_NAME" envDefault:"tours"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Viewing sessions expire after this long without activity.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	// Identity. An empty secret accepts no bearer tokens; every visitor is a guest.
	JWTSecret   string        `env:"JWT_SECRET" envDefault:""`
	JWTTokenTTL time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`

	// Review persistence sinks. All are optional.
	ReviewEndpointURL string        `env:"REVIEW_ENDPOINT_URL" envDefault:""`
	KafkaEnabled      bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	SinkTimeout       time.Duration `env:"REVIEW_SINK_TIMEOUT" envDefault:"5s"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load tour config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.TourSource {
	case SourceCatalog:
		if strings.TrimSpace(c.CatalogPath) == "" {
			return fmt.Errorf("CATALOG_PATH is required when TOUR_SOURCE=%s", SourceCatalog)
		}
		if c.CatalogReloadCron != "" {
			if _, err := cron.ParseStandard(c.CatalogReloadCron); err != nil {
				return fmt.Errorf("invalid CATALOG_RELOAD_CRON %q: %w", c.CatalogReloadCron, err)
			}
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("TOUR_SOURCE must be %q or %q, got %q", SourceCatalog, SourcePostgres, c.TourSource)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.SubmitRateLimit < 0 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT_RPS must not be negative")
	}
	if c.SubmitRateLimit > 0 && c.SubmitBurst < 1 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}

// UsesPostgres reports whether the service needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.TourSource == SourcePostgres
}
