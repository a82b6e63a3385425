package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mini-rodalies-3d/subway/internal/config"
)

// Open connects to Postgres when DATABASE_URL is set and to the SQLite file
// otherwise, then makes sure the schema exists.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UsePostgres() {
		log.Printf("Connecting to Postgres database")
		store, err := NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		return store, nil
	}

	log.Printf("Connecting to SQLite database: %s", cfg.DatabasePath)
	if !strings.HasPrefix(cfg.DatabasePath, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return store, nil
}
