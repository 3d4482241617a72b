package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "")

	cfg := Load()

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "http://localhost:9090", cfg.BaseURL)
	require.Equal(t, "local", cfg.StorageBackend)
	require.Equal(t, 60*time.Second, cfg.PresignTTL)
	require.Equal(t, 100, cfg.LogBufferCapacity)
	require.Equal(t, "error", cfg.LogBufferFlushLevel)
	require.Equal(t, cfg.JWTSecret, cfg.UploadSigningKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("STORAGE_TIMEOUT", "soon")
	t.Setenv("LOG_BUFFER_CAPACITY", "many")
	t.Setenv("S3_FORCE_PATH_STYLE", "maybe")

	cfg := Load()

	require.Equal(t, 10*time.Second, cfg.StorageTimeout)
	require.Equal(t, 100, cfg.LogBufferCapacity)
	require.False(t, cfg.S3ForcePathStyle)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"default secret in production", func(c *Config) {
			c.Environment = "production"
			c.StorageBackend = "s3"
			c.S3BucketName = "photos"
		}, "JWT secret"},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "database driver"},
		{"unknown storage", func(c *Config) { c.StorageBackend = "ftp" }, "storage backend"},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = "s3" }, "bucket"},
		{"local in production", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s3cr3t"
		}, "local storage"},
		{"bad flush level", func(c *Config) { c.LogBufferFlushLevel = "loud" }, "log level"},
		{"zero capacity", func(c *Config) { c.LogBufferCapacity = 0 }, "capacity"},
		{"local without signing key", func(c *Config) { c.UploadSigningKey = "" }, "signing key"},
		{"zero presign ttl", func(c *Config) { c.PresignTTL = 0 }, "presign"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
