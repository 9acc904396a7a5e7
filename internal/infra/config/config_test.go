package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, BackendStore, cfg.LockBackend)
	assert.Equal(t, 3*time.Second, cfg.LockWait)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 10, cfg.DefaultPageLimit)
	assert.Equal(t, 100, cfg.MaxPageLimit)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.UsesRedis())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RETRY_BACKOFF", "2s,10s")
	t.Setenv("DEFAULT_PAGE_LIMIT", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.StorageBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{2 * time.Second, 10 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 20, cfg.DefaultPageLimit)
	assert.True(t, cfg.UsesRedis())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri": {"STORAGE_BACKEND": "mongo"},
		"unknown storage":   {"STORAGE_BACKEND": "sqlite"},
		"unknown lock":      {"LOCK_BACKEND": "zookeeper"},
		"bad duration":      {"LOCK_TTL": "ten seconds"},
		"bad backoff":       {"RETRY_BACKOFF": "1s,soon"},
		"bad int":           {"MAX_PAGE_LIMIT": "many"},
		"limits inverted":   {"DEFAULT_PAGE_LIMIT": "50", "MAX_PAGE_LIMIT": "10"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STAYHUB_DOTENV_SAMPLE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("STAYHUB_DOTENV_SAMPLE") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("STAYHUB_DOTENV_SAMPLE"))
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
