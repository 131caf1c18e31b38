package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type localEntry struct {
	codes     []string
	expiresAt time.Time
}

// LocalCache is the process-local backend. Single-entry operations and
// TTL behave exactly as specified; the two cross-cutting invalidations
// are best-effort no-ops (see InvalidateUserAll) because a local map has
// no pattern enumeration worth the bookkeeping. Deployments that need
// multi-node correctness configure the Redis backend instead.
type LocalCache struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	ttl     time.Duration
	logger  *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewLocalCache(ttl time.Duration, logger *zap.Logger) *LocalCache {
	return &LocalCache{
		entries: make(map[string]localEntry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *LocalCache) Get(ctx context.Context, userID, appID string) ([]string, bool, error) {
	key := entryKey(userID, appID)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// A concurrent Set may have refreshed the entry between the locks;
		// only drop it if it is still the expired one.
		if current, still := c.entries[key]; still && c.now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.codes, true, nil
}

func (c *LocalCache) Set(ctx context.Context, userID, appID string, codes []string) error {
	c.mu.Lock()
	c.entries[entryKey(userID, appID)] = localEntry{
		codes:     codes,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) InvalidateUser(ctx context.Context, userID, appID string) error {
	c.mu.Lock()
	delete(c.entries, entryKey(userID, appID))
	c.mu.Unlock()
	return nil
}

// InvalidateUserAll is a warn-and-no-op on the local backend: stale
// entries live out their TTL. This staleness window is accepted for
// single-node deployments.
func (c *LocalCache) InvalidateUserAll(ctx context.Context, userID string) error {
	c.logger.Warn("local cache cannot invalidate across applications; entries expire via TTL",
		zap.String("user_id", userID))
	return nil
}

// InvalidateApplication is a warn-and-no-op, same as InvalidateUserAll.
func (c *LocalCache) InvalidateApplication(ctx context.Context, appID string) error {
	c.logger.Warn("local cache cannot invalidate across users; entries expire via TTL",
		zap.String("application_id", appID))
	return nil
}
