package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/mini-rodalies-3d/subway/internal/metrics"
	"github.com/mini-rodalies-3d/subway/models"
)

// CachedLines wraps a Store with an LRU cache of assembled line views.
// Every write that touches a line bumps the line's generation and drops its
// entry, both before and after the write. A loaded view is only stored if
// the generation did not move while it was loading, so a read racing a
// write never puts the old view back.
type CachedLines struct {
	Store
	lines gcache.Cache

	mu          sync.Mutex
	generations map[int64]uint64
}

// NewCachedLines caches up to size lines for ttl each
func NewCachedLines(store Store, size int, ttl time.Duration) *CachedLines {
	if size < 1 {
		size = 1
	}
	return &CachedLines{
		Store:       store,
		lines:       gcache.New(size).LRU().Expiration(ttl).Build(),
		generations: make(map[int64]uint64),
	}
}

// GetLine serves the line from cache, loading it on a miss
func (c *CachedLines) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	if v, err := c.lines.Get(id); err == nil {
		metrics.ObserveCacheLookup(true)
		return cloneLine(v.(models.Line)), nil
	}
	metrics.ObserveCacheLookup(false)

	gen := c.generation(id)
	line, err := c.Store.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generations[id] == gen {
		c.lines.Set(id, *cloneLine(*line))
	}
	c.mu.Unlock()
	return line, nil
}

func (c *CachedLines) UpdateLine(ctx context.Context, id int64, req models.LineUpdateRequest) (*models.Line, error) {
	c.invalidate(id)
	defer c.invalidate(id)
	return c.Store.UpdateLine(ctx, id, req)
}

func (c *CachedLines) DeleteLine(ctx context.Context, id int64) error {
	c.invalidate(id)
	defer c.invalidate(id)
	return c.Store.DeleteLine(ctx, id)
}

func (c *CachedLines) AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (*models.SectionChange, error) {
	c.invalidate(lineID)
	defer c.invalidate(lineID)
	return c.Store.AddSection(ctx, lineID, req)
}

func (c *CachedLines) RemoveStation(ctx context.Context, lineID, stationID int64) (*models.SectionChange, error) {
	c.invalidate(lineID)
	defer c.invalidate(lineID)
	return c.Store.RemoveStation(ctx, lineID, stationID)
}

func (c *CachedLines) generation(id int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id]
}

func (c *CachedLines) invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[id]++
	c.lines.Remove(id)
}

// Purge drops every cached line
func (c *CachedLines) Purge() {
	c.lines.Purge()
}

func cloneLine(line models.Line) *models.Line {
	line.Stations = slices.Clone(line.Stations)
	line.Sections = slices.Clone(line.Sections)
	return &line
}
