package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      slog.Level
	DatabaseURL   string
	AutoMigrate   bool
	RedisURL      string
	CacheTTL      time.Duration
	ImportLockTTL time.Duration
	MaxUploadSize int64
	SmoothWindow  int
	CORSOrigins   []string
	HTTPTimeout   time.Duration
}

// FromEnv reads the process environment. A .env file in the working
// directory is loaded first when present; real env vars win over it.
func FromEnv() Config {
	_ = godotenv.Load()

	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return Config{
		Port:          envOr("PORT", "8080"),
		Env:           envOr("APP_ENV", "production"),
		LogLevel:      lvl,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AutoMigrate:   envBool("DB_AUTO_MIGRATE", true),
		RedisURL:      os.Getenv("REDIS_URL"),
		CacheTTL:      envSeconds("CACHE_TTL_SECONDS", 5*time.Minute),
		ImportLockTTL: envSeconds("IMPORT_LOCK_TTL_SECONDS", 2*time.Minute),
		MaxUploadSize: int64(envInt("MAX_UPLOAD_BYTES", 5<<20)),
		SmoothWindow:  envInt("SMOOTHING_WINDOW", 7),
		CORSOrigins:   envList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		HTTPTimeout:   envSeconds("HTTP_TIMEOUT_SECONDS", 15*time.Second),
	}
}

// Development enables stack traces in error responses.
func (c Config) Development() bool { return c.Env == "development" }

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envSeconds(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func envList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
