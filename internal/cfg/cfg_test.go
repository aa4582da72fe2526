package cfg

import (
	"testing"
	"time"

	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv обнуляет переменные, которые могут прийти из окружения CI.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_PROVIDER", "CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY",
		"R2_BUCKET_NAME", "R2_CUSTOM_DOMAIN", "R2_ENDPOINT", "R2_PRESIGN_TTL",
		"MINIO_ENDPOINT", "MINIO_USE_SSL", "TMDB_IMAGE_BASE_URL", "SOURCE_TIMEOUT", "SOURCE_MAX_BYTES",
		"HTTP_PORT", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "KEEP_ALIVE",
		"GRPC_PORT", "GRPC_NETWORK_MODE", "CACHE_SIZE", "VARIANT_TTL",
		"REDIS_ADDR", "REDIS_DB_ID", "POSTGRES_DB", "POSTGRES_USER", "POSTGRES_PASSWORD",
		"POSTGRES_MAX_CONNS", "MIGRATIONS_DIR",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_REQUEST_TOPIC", "KAFKA_GROUP_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadClampsPresignTTL(t *testing.T) {
	for _, value := range []string{"192h", "-1h"} {
		t.Run(value, func(t *testing.T) {
			clearEnv(t)
			setCredentials(t)
			t.Setenv("R2_PRESIGN_TTL", value)

			c, err := Load(logger.Nop{})
			require.NoError(t, err)
			assert.Equal(t, 7*24*time.Hour, c.Storage.PresignTTL)
		})
	}

	clearEnv(t)
	setCredentials(t)
	t.Setenv("R2_PRESIGN_TTL", "1h")
	c, err := Load(logger.Nop{})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, c.Storage.PresignTTL)
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("R2_ACCESS_KEY_ID", "AKID")
	t.Setenv("R2_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acc123")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	setCredentials(t)

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, ProviderR2, c.Storage.Provider)
	assert.Equal(t, "baphomet-images", c.Storage.BucketName)
	assert.Equal(t, "https://baphomet-images.acc123.r2.cloudflarestorage.com", c.Storage.Endpoint)
	assert.Equal(t, 7*24*time.Hour, c.Storage.PresignTTL)
	assert.Empty(t, c.Storage.CustomDomain)

	assert.Equal(t, "https://image.tmdb.org/t/p", c.Source.TMDBImageBaseURL)
	assert.Equal(t, 30*time.Second, c.Source.Timeout)

	assert.Equal(t, "8080", c.Http.Port)
	assert.Equal(t, "8091", c.Grpc.Port)
	assert.Equal(t, 4096, c.Cache.Size)
	assert.Equal(t, 24*time.Hour, c.Cache.VariantTTL)

	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Db)
	assert.Nil(t, c.Kafka)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	setCredentials(t)
	t.Setenv("R2_BUCKET_NAME", "custom")
	t.Setenv("R2_CUSTOM_DOMAIN", "https://cdn.example.com/")
	t.Setenv("R2_ENDPOINT", "http://127.0.0.1:9000/")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB_ID", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_REQUEST_TOPIC", "image.requests")

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, "custom", c.Storage.BucketName)
	assert.Equal(t, "https://cdn.example.com", c.Storage.CustomDomain)
	assert.Equal(t, "http://127.0.0.1:9000", c.Storage.Endpoint)

	require.NotNil(t, c.Redis)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, 2, c.Redis.DB)

	require.NotNil(t, c.Kafka)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "image.processed", c.Kafka.Topic)
	assert.Equal(t, "image.requests", c.Kafka.RequestTopic)
}

func TestLoadMissingCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acc123")
	t.Setenv("R2_ACCESS_KEY_ID", "AKID")

	_, err := Load(logger.Nop{})
	require.ErrorIs(t, err, e.ErrMissingConfig)
}

func TestLoadMissingAccount(t *testing.T) {
	clearEnv(t)
	t.Setenv("R2_ACCESS_KEY_ID", "AKID")
	t.Setenv("R2_SECRET_ACCESS_KEY", "SECRET")

	_, err := Load(logger.Nop{})
	require.ErrorIs(t, err, e.ErrMissingConfig)
}

func TestLoadMinIOProviderWithoutAccount(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_PROVIDER", "minio")
	t.Setenv("R2_ACCESS_KEY_ID", "minioadmin")
	t.Setenv("R2_SECRET_ACCESS_KEY", "minioadmin")

	c, err := Load(logger.Nop{})
	require.NoError(t, err)
	assert.Equal(t, ProviderMinIO, c.Storage.Provider)
	assert.Equal(t, "minio:9000", c.Minio.MinioEndpoint)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{key: "STORAGE_PROVIDER", value: "gcs"},
		{key: "R2_PRESIGN_TTL", value: "week"},
		{key: "SOURCE_TIMEOUT", value: "soon"},
		{key: "CACHE_SIZE", value: "many"},
		{key: "MINIO_USE_SSL", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			setCredentials(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(logger.Nop{})
			require.Error(t, err)
		})
	}
}

func TestLoadPostgresRequiresUser(t *testing.T) {
	clearEnv(t)
	setCredentials(t)
	t.Setenv("POSTGRES_DB", "images")

	_, err := Load(logger.Nop{})
	require.ErrorIs(t, err, e.ErrMissingConfig)

	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	c, err := Load(logger.Nop{})
	require.NoError(t, err)
	require.NotNil(t, c.Db)
	assert.Equal(t, "images", c.Db.DBName)
	assert.Equal(t, "disable", c.Db.SSLMode)
	assert.Equal(t, int32(10), c.Db.MaxConns)
	assert.Equal(t, "db/migrations", c.Db.MigrationsDir)

	t.Setenv("POSTGRES_MAX_CONNS", "0")
	_, err = Load(logger.Nop{})
	require.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}
