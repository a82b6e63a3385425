package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the subway API and admin tool
type Config struct {
	// Database
	DatabasePath string // SQLite file, used when DatabaseURL is empty
	DatabaseURL  string // Postgres connection string

	// HTTP
	Port           string
	AllowedOrigins []string
	StaticDir      string

	// Line view cache
	LineCacheSize int
	LineCacheTTL  time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		DatabasePath: getEnv("SQLITE_DATABASE", "data/subway.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		StaticDir:      getEnv("STATIC_DIR", ""),

		LineCacheSize: getEnvInt("LINE_CACHE_SIZE", 256),
		LineCacheTTL:  time.Duration(getEnvInt("LINE_CACHE_TTL_SECONDS", 60)) * time.Second,
	}
}

// UsePostgres reports whether the Postgres store should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
