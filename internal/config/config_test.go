package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "LOG_LEVEL", "DATABASE_URL", "DB_AUTO_MIGRATE", "REDIS_URL",
		"CACHE_TTL_SECONDS", "IMPORT_LOCK_TTL_SECONDS", "MAX_UPLOAD_BYTES", "SMOOTHING_WINDOW", "CORS_ORIGINS", "HTTP_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Development())
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadSize)
	assert.Equal(t, 7, cfg.SmoothWindow)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.ImportLockTTL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://roi@localhost/roi?sslmode=disable")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("IMPORT_LOCK_TTL_SECONDS", "600")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("SMOOTHING_WINDOW", "14")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "2.5")

	cfg := FromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.Development())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "postgres://roi@localhost/roi?sslmode=disable", cfg.DatabaseURL)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.ImportLockTTL)
	assert.Equal(t, int64(1024), cfg.MaxUploadSize)
	assert.Equal(t, 14, cfg.SmoothWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2500*time.Millisecond, cfg.HTTPTimeout)
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "-1")
	t.Setenv("SMOOTHING_WINDOW", "seven")
	t.Setenv("CACHE_TTL_SECONDS", "soon")
	t.Setenv("DB_AUTO_MIGRATE", "maybe")

	cfg := FromEnv()
	assert.Equal(t, int64(5<<20), cfg.MaxUploadSize)
	assert.Equal(t, 7, cfg.SmoothWindow)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.AutoMigrate)
}
