package distribution

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Snapshot is one cached distribution keyed by file path, together with its
// derived cohort estimate. Snapshots stay valid for the process lifetime
// unless the backing file's modification time changes.
type Snapshot struct {
	Path     string
	ModTime  time.Time
	Rows     []Bucket
	Estimate int
	LoadedAt time.Time
}

// CacheStats reports snapshot cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Reloads int64
	Entries int
}

// SnapshotCache keeps one parsed snapshot per distribution file and reloads
// only on mtime change. Safe for concurrent use.
type SnapshotCache struct {
	mu      sync.Mutex
	entries map[string]*Snapshot
	stats   CacheStats
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string]*Snapshot),
	}
}

// Get returns the snapshot for path, reloading when the backing file changed
// since the last load. A missing file is cached as an empty snapshot with a
// zero mtime, so it is picked up automatically once the file appears.
func (c *SnapshotCache) Get(path string) (*Snapshot, error) {
	var modTime time.Time
	info, err := os.Stat(path)
	switch {
	case err == nil:
		modTime = info.ModTime()
	case os.IsNotExist(err):
		// leave modTime zero
	default:
		return nil, fmt.Errorf("stat distribution %s: %w", path, err)
	}

	c.mu.Lock()
	entry, known := c.entries[path]
	if known && entry.ModTime.Equal(modTime) {
		c.stats.Hits++
		c.mu.Unlock()
		return entry, nil
	}
	c.mu.Unlock()

	rows, err := Load(path)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Path:     path,
		ModTime:  modTime,
		Rows:     rows,
		Estimate: EstimateCohortSize(rows),
		LoadedAt: time.Now(),
	}

	c.mu.Lock()
	c.stats.Misses++
	if known {
		c.stats.Reloads++
	}
	c.entries[path] = snap
	c.mu.Unlock()
	return snap, nil
}

// Warm preloads the given paths, typically at startup so the first request
// does not pay parse latency.
func (c *SnapshotCache) Warm(paths ...string) error {
	for _, path := range paths {
		if _, err := c.Get(path); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the cached snapshot for path.
func (c *SnapshotCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Stats returns a copy of the current cache counters.
func (c *SnapshotCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}
