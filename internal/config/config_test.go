package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadConfigDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("ACCESS_CACHE_TTL", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("LANG", "")
	t.Setenv("SAMPLE_DATA_SEED", "")

	conf := ReadConfig()

	assert.Equal(t, "localhost", conf.DB_HOST)
	assert.Equal(t, "0.0.0.0:8000", conf.SERVER_ADDR)
	assert.Equal(t, 30*time.Second, conf.ACCESS_CACHE_TTL)
	assert.Equal(t, 24*time.Hour, conf.JWT_TTL)
	assert.Equal(t, "en-US", conf.LANG)
	assert.Equal(t, int64(0), conf.SAMPLE_DATA_SEED)
}

func TestReadConfigOverrides(t *testing.T) {
	t.Setenv("ACCESS_CACHE_TTL", "5m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SAMPLE_DATA_SEED", "42")
	t.Setenv("LANG", "es-ES")

	conf := ReadConfig()

	assert.Equal(t, 5*time.Minute, conf.ACCESS_CACHE_TTL)
	assert.Equal(t, 3, conf.REDIS_DB)
	assert.Equal(t, int64(42), conf.SAMPLE_DATA_SEED)
	assert.Equal(t, "es-ES", conf.LANG)
}

func TestReadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ACCESS_CACHE_TTL", "soon")
	t.Setenv("REDIS_DB", "two")

	conf := ReadConfig()

	assert.Equal(t, 30*time.Second, conf.ACCESS_CACHE_TTL)
	assert.Equal(t, 0, conf.REDIS_DB)
}

func TestDSN(t *testing.T) {
	conf := &Config{
		DB_USERNAME: "taiga",
		DB_PASSWORD: "secret",
		DB_HOST:     "db",
		DB_PORT:     "5432",
		DB_NAME:     "taiga",
	}
	assert.Equal(t, "postgresql://taiga:secret@db:5432/taiga", conf.DSN())

	conf.DISABLE_TLS = "true"
	assert.Equal(t, "postgresql://taiga:secret@db:5432/taiga?sslmode=disable", conf.DSN())
}
