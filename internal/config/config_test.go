package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SQLITE_DATABASE", "DATABASE_URL", "PORT", "ALLOWED_ORIGINS", "LINE_CACHE_SIZE", "LINE_CACHE_TTL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "data/subway.db", cfg.DatabasePath)
	assert.False(t, cfg.UsePostgres())
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.LineCacheSize)
	assert.Equal(t, time.Minute, cfg.LineCacheTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/subway")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LINE_CACHE_SIZE", "not-a-number")
	t.Setenv("LINE_CACHE_TTL_SECONDS", "5")

	cfg := Load()
	assert.True(t, cfg.UsePostgres())
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.LineCacheSize)
	assert.Equal(t, 5*time.Second, cfg.LineCacheTTL)
}
