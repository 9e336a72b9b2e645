package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DirectoryTTL is how long a fetched directory is served before refetching.
const DirectoryTTL = 5 * time.Minute

// directoryFetchTimeout bounds one shared fetch, independent of any caller.
const directoryFetchTimeout = 30 * time.Second

// DirectoryCache is a read-through, expiring snapshot of the user directory.
// Failed fetches are not cached; the next caller fetches again.
type DirectoryCache struct {
	source DirectorySource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	snapshot  Directory
	fetchedAt time.Time

	group singleflight.Group
}

// NewDirectoryCache wraps source with the standard 5 minute TTL.
func NewDirectoryCache(source DirectorySource) *DirectoryCache {
	return &DirectoryCache{source: source, ttl: DirectoryTTL, now: time.Now}
}

// Load returns the cached directory, fetching it when missing or expired.
// On failure it returns an empty, non-nil Directory along with the error.
func (c *DirectoryCache) Load(ctx context.Context) (Directory, error) {
	if dir, ok := c.fresh(); ok {
		return dir, nil
	}

	v, err, _ := c.group.Do("directory", func() (interface{}, error) {
		if dir, ok := c.fresh(); ok {
			return dir, nil
		}
		// the flight is shared; one caller going away must not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), directoryFetchTimeout)
		defer cancel()
		dir, err := c.source.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if dir == nil {
			dir = Directory{}
		}
		c.mu.Lock()
		c.snapshot = dir
		c.fetchedAt = c.now()
		c.mu.Unlock()
		slog.Info("user directory loaded", "users", len(dir))
		return dir, nil
	})
	if err != nil {
		var derr *DirectoryError
		if !errors.As(err, &derr) {
			err = &DirectoryError{Kind: DirectoryUnavailable, Err: err}
		}
		slog.Error("user directory load failed", "error", err)
		return Directory{}, err
	}
	return v.(Directory), nil
}

// Stats reports the size and fetch time of the current snapshot, if any.
func (c *DirectoryCache) Stats() (users int, fetchedAt time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return 0, time.Time{}, false
	}
	return len(c.snapshot), c.fetchedAt, true
}

func (c *DirectoryCache) fresh() (Directory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.snapshot, true
}
