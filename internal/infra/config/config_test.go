package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "")
	t.Setenv("BROKER", "")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, LockLocal, cfg.LockBackend)
	assert.Equal(t, BrokerNone, cfg.Broker)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "roles", cfg.JWTRolesClaim)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"mongo without uri", map[string]string{"STORAGE": "mongo", "MONGO_URI": ""}},
		{"kafka without brokers", map[string]string{"BROKER": "kafka", "KAFKA_BROKERS": ""}},
		{"unknown storage", map[string]string{"STORAGE": "cassandra"}},
		{"bad duration", map[string]string{"LOCK_WAIT": "soon"}},
		{"bad backoff", map[string]string{"RETRY_BACKOFF": "1s,later"}},
		{"bad bool", map[string]string{"S3_USE_SSL": "maybe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(noEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nKAFKA_BROKERS=a:9092, b:9092\nBROKER=kafka\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BROKER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("BROKER")
		os.Unsetenv("KAFKA_BROKERS")
	})
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("BROKER")
	os.Unsetenv("KAFKA_BROKERS")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, BrokerKafka, cfg.Broker)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}
