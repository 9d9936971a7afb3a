package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, SourceCatalog, cfg.TourSource)
	assert.Equal(t, "data/tours.yaml", cfg.CatalogPath)
	assert.Equal(t, "@every 5m", cfg.CatalogReloadCron)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.ReviewEndpointURL)
	assert.False(t, cfg.UsesPostgres())
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("TOUR_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_PostgresSource(t *testing.T) {
	t.Setenv("TOUR_SOURCE", "postgres")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, "db.internal", cfg.DBHost)
}

func TestLoad_UnknownSource(t *testing.T) {
	t.Setenv("TOUR_SOURCE", "mongo")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOUR_SOURCE")
}

func TestLoad_InvalidCron(t *testing.T) {
	t.Setenv("CATALOG_RELOAD_CRON", "every now and then")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_RELOAD_CRON")
}

func TestLoad_StandardCronAccepted(t *testing.T) {
	t.Setenv("CATALOG_RELOAD_CRON", "*/10 * * * *")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "*/10 * * * *", cfg.CatalogReloadCron)
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_SessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoad_KafkaBrokersList(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_SubmitRateLimit(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.SubmitRateLimit)
	assert.Equal(t, 5, cfg.SubmitBurst)

	t.Setenv("SUBMIT_RATE_LIMIT_RPS", "-1")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBMIT_RATE_LIMIT_RPS")

	t.Setenv("SUBMIT_RATE_LIMIT_RPS", "2")
	t.Setenv("SUBMIT_RATE_LIMIT_BURST", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBMIT_RATE_LIMIT_BURST")

	t.Setenv("SUBMIT_RATE_LIMIT_RPS", "0")
	_, err = Load()
	assert.NoError(t, err)
}
