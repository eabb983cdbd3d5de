package config

import (
	"time"

	"github.com/gamma-omg/lexi-review/internal/pkg/env"
)

type Config struct {
	AuthSecret string
	DB         dbConfig
	Http       httpConfig
	Review     reviewConfig
	Catalog    catalogConfig
	Redis      redisConfig
}

type dbConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type httpConfig struct {
	ListenAddr      string
	IdleTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type reviewConfig struct {
	SessionCap      int
	DailyNewCap     int
	MaxIntervalDays int
	UpsertRetries   int
	RetryBackoff    time.Duration
}

type catalogConfig struct {
	Endpoint  string
	CacheTTL  time.Duration
	CacheKeys int64
	CacheCost int64
}

type redisConfig struct {
	Addr     string
	Password string
	DB       int
}

func FromEnv() Config {
	return Config{
		AuthSecret: env.RequireString("AUTH_SECRET"),
		DB: dbConfig{
			Host:     env.String("DB_HOST", "localhost"),
			Port:     env.String("DB_PORT", "5432"),
			User:     env.String("DB_USER", "postgres"),
			Password: env.String("DB_PASSWORD", "password"),
			Name:     env.String("DB_NAME", "review_service"),
		},
		Http: httpConfig{
			ListenAddr:      env.String("HTTP_LISTEN_ADDR", ":8080"),
			IdleTimeout:     env.Duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ReadTimeout:     env.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.Duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: env.Duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Review: reviewConfig{
			SessionCap:      env.Int("REVIEW_SESSION_CAP", 20),
			DailyNewCap:     env.Int("REVIEW_DAILY_NEW_CAP", 10),
			MaxIntervalDays: env.Int("REVIEW_MAX_INTERVAL_DAYS", 365),
			UpsertRetries:   env.Int("REVIEW_UPSERT_RETRIES", 3),
			RetryBackoff:    env.Duration("REVIEW_RETRY_BACKOFF", 100*time.Millisecond),
		},
		Catalog: catalogConfig{
			Endpoint:  env.String("CATALOG_ENDPOINT", "http://localhost:8081/api/v1/catalog"),
			CacheTTL:  env.Duration("CATALOG_CACHE_TTL", 5*time.Minute),
			CacheKeys: env.Int64("CATALOG_CACHE_KEYS", 10000),
			CacheCost: env.Int64("CATALOG_CACHE_COST", 10000),
		},
		Redis: redisConfig{
			Addr:     env.String("REDIS_ADDR", ""),
			Password: env.String("REDIS_PASSWORD", ""),
			DB:       env.Int("REDIS_DB", 0),
		},
	}
}
