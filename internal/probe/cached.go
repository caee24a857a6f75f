package probe

import (
	"context"
	"log/slog"
	"sync"
)

// Cache persists measured durations across restarts. Source assets are
// immutable once generated, so entries never expire.
type Cache interface {
	GetDuration(ctx context.Context, sourceURL string) (float64, bool, error)
	PutDuration(ctx context.Context, sourceURL string, seconds float64) error
}

// Cached wraps a Prober with an in-memory map backed by an optional
// persistent cache. This avoids re-running the probe subprocess for a
// source the agent has already measured.
type Cached struct {
	inner  Prober
	cache  Cache
	logger *slog.Logger

	mu   sync.RWMutex
	seen map[string]float64
}

// NewCached creates a caching wrapper. cache may be nil for a purely
// in-memory variant.
func NewCached(inner Prober, cache Cache, logger *slog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		cache:  cache,
		logger: logger,
		seen:   make(map[string]float64),
	}
}

// Duration returns the cached duration if known, otherwise probes and
// records the result. Cache read/write failures are logged and treated
// as misses; the probe itself decides success.
func (c *Cached) Duration(ctx context.Context, sourceURL string) (float64, error) {
	c.mu.RLock()
	if seconds, ok := c.seen[sourceURL]; ok {
		c.mu.RUnlock()
		return seconds, nil
	}
	c.mu.RUnlock()

	if c.cache != nil {
		seconds, ok, err := c.cache.GetDuration(ctx, sourceURL)
		if err != nil {
			c.logger.Warn("duration cache read failed", "error", err)
		} else if ok {
			c.remember(sourceURL, seconds)
			return seconds, nil
		}
	}

	seconds, err := c.inner.Duration(ctx, sourceURL)
	if err != nil {
		return 0, err
	}

	c.remember(sourceURL, seconds)
	if c.cache != nil {
		if err := c.cache.PutDuration(ctx, sourceURL, seconds); err != nil {
			c.logger.Warn("duration cache write failed", "error", err)
		}
	}
	return seconds, nil
}

func (c *Cached) remember(sourceURL string, seconds float64) {
	c.mu.Lock()
	c.seen[sourceURL] = seconds
	c.mu.Unlock()
}

// Invalidate drops the in-memory entry for a source.
func (c *Cached) Invalidate(sourceURL string) {
	c.mu.Lock()
	delete(c.seen, sourceURL)
	c.mu.Unlock()
}
