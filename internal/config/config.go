package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	SERVER_ADDR     string
	ALLOWED_HEADERS string

	// Redis backs the access facts cache. Caching is disabled when REDIS_ADDR is empty.
	REDIS_ADDR       string
	REDIS_PASSWORD   string
	REDIS_DB         int
	ACCESS_CACHE_TTL time.Duration

	JWT_SECRET string
	JWT_TTL    time.Duration

	// OIDC single sign-on, disabled when OIDC_ISSUER is empty
	OIDC_ISSUER        string
	OIDC_CLIENT_ID     string
	OIDC_CLIENT_SECRET string
	OIDC_CALLBACK_URL  string
	STATE_SECRET       string

	LANG string

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string

	SAMPLE_DATA_SEED int64
}

func ReadConfig() *Config {
	return &Config{
		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     getEnvOrDefault("DB_HOST", "localhost"),
		DB_PORT:     getEnvOrDefault("DB_PORT", "5432"),
		DB_NAME:     getEnvOrDefault("DB_NAME", "taiga"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		SERVER_ADDR:     getEnvOrDefault("SERVER_ADDR", "0.0.0.0:8000"),
		ALLOWED_HEADERS: getEnvOrDefault("ALLOWED_HEADERS", "Content-Type,Authorization,Accept-Language"),

		REDIS_ADDR:       os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD:   os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:         getIntOrDefault("REDIS_DB", 0),
		ACCESS_CACHE_TTL: getDurationOrDefault("ACCESS_CACHE_TTL", 30*time.Second),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_TTL:    getDurationOrDefault("JWT_TTL", 24*time.Hour),

		OIDC_ISSUER:        os.Getenv("OIDC_ISSUER"),
		OIDC_CLIENT_ID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDC_CLIENT_SECRET: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDC_CALLBACK_URL:  os.Getenv("OIDC_CALLBACK_URL"),
		STATE_SECRET:       os.Getenv("STATE_SECRET"),

		LANG: getEnvOrDefault("LANG", "en-US"),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		SAMPLE_DATA_SEED: int64(getIntOrDefault("SAMPLE_DATA_SEED", 0)),
	}
}

// DSN returns the postgres connection string for the configured database.
func (c *Config) DSN() string {
	str := "postgresql://" + c.DB_USERNAME + ":" + c.DB_PASSWORD + "@" + c.DB_HOST + ":" + c.DB_PORT + "/" + c.DB_NAME
	if c.DISABLE_TLS == "true" {
		str = str + "?sslmode=disable"
	}
	return str
}

func GetEnvOrDefault(key, defaultValue string) string {
	return getEnvOrDefault(key, defaultValue)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
