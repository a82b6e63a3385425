package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-rodalies-3d/subway/internal/config"
	"github.com/mini-rodalies-3d/subway/models"
)

func TestOpenCreatesSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "subway.db")
	ctx := context.Background()

	store, err := Open(ctx, &config.Config{DatabasePath: path})
	require.NoError(t, err)
	_, err = store.CreateStation(ctx, models.StationRequest{Name: "Sants"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening keeps the data and tolerates the existing schema
	store, err = Open(ctx, &config.Config{DatabasePath: path})
	require.NoError(t, err)
	defer store.Close()

	stations, err := store.ListStations(ctx)
	require.NoError(t, err)
	assert.Len(t, stations, 1)
}
