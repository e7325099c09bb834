package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	ActivityBaseURL  string
	AnalyticsBaseURL string
	HTTPTimeout      time.Duration
	RateLimitRPS     float64

	// Client-credentials for the activity service; empty disables OAuth2.
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string

	// Quiz definition cache; empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QuizCacheTTL  time.Duration

	// In-memory session eviction. Zero SessionIdleTTL keeps idle sessions;
	// zero SessionCompletedTTL drops a session as soon as it completes.
	SessionIdleTTL      time.Duration
	SessionCompletedTTL time.Duration
	SessionSweepEvery   time.Duration

	JournalDriver string // memory|sqlite|postgres
	JournalDSN    string

	CORSOrigins []string

	LogLevel string
	LogFile  string
}

// Load reads a .env file if one exists, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		ActivityBaseURL:     envOr("ACTIVITY_BASE_URL", "http://localhost:5000/api/activity"),
		AnalyticsBaseURL:    envOr("ANALYTICS_BASE_URL", "http://localhost:5000/api/analytics"),
		HTTPTimeout:         envDuration("HTTP_TIMEOUT", 10*time.Second),
		RateLimitRPS:        envFloat("RATE_LIMIT_RPS", 0),
		OAuthTokenURL:       os.Getenv("OAUTH_TOKEN_URL"),
		OAuthClientID:       os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret:   os.Getenv("OAUTH_CLIENT_SECRET"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envInt("REDIS_DB", 0),
		QuizCacheTTL:        envDuration("QUIZ_CACHE_TTL", 5*time.Minute),
		SessionIdleTTL:      envDuration("SESSION_IDLE_TTL", 2*time.Hour),
		SessionCompletedTTL: envDuration("SESSION_COMPLETED_TTL", time.Minute),
		SessionSweepEvery:   envDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		JournalDriver:       envOr("JOURNAL_DRIVER", "memory"),
		JournalDSN:          envOr("JOURNAL_DSN", ""),
		CORSOrigins:         csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFile:             os.Getenv("LOG_FILE"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envFloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return def
	}
	return f
}

// envDuration accepts Go durations ("30s") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
