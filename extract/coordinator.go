package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/drover/browser"
	"github.com/use-agent/drover/cache"
	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

// Coordinator is the extraction request path: consult the cache, acquire a
// session, dispatch to the strategy for the request's kind, store the
// result, release the session. No path leaks a session.
type Coordinator struct {
	pool     *browser.Pool
	cache    *cache.Cache
	registry *Registry
	cacheCfg config.CacheConfig
}

// NewCoordinator wires the coordinator to its collaborators.
func NewCoordinator(pool *browser.Pool, c *cache.Cache, registry *Registry, cacheCfg config.CacheConfig) *Coordinator {
	return &Coordinator{
		pool:     pool,
		cache:    c,
		registry: registry,
		cacheCfg: cacheCfg,
	}
}

// Extract runs one extraction request end to end. useCache=false bypasses
// both lookup and store for the uncached variant of the surface. Elapsed
// time covers the whole request, including cache-miss cost.
func (c *Coordinator) Extract(ctx context.Context, req *models.ExtractionRequest, useCache bool) (*models.ExtractionResult, *models.CacheInfo, error) {
	start := time.Now()

	req.Defaults()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	key := cache.Key(req)

	if useCache {
		if entry, ok, err := c.cache.Get(ctx, key); err != nil {
			// A broken cache degrades to a miss; the request still runs.
			slog.Error("cache lookup failed, treating as miss", "key", key, "error", err)
		} else if ok {
			result := &models.ExtractionResult{
				Data:      entry.Data,
				Kind:      entry.Kind,
				Selector:  entry.Selector,
				ElapsedMs: time.Since(start).Milliseconds(),
				Metadata:  entry.Metadata,
			}
			info := &models.CacheInfo{
				Hit:       true,
				Key:       key,
				ExpiresAt: entry.ExpiresAt.UTC().Format(time.RFC3339),
			}
			return result, info, nil
		}
	}

	strategy, err := c.registry.Get(req.Kind)
	if err != nil {
		return nil, nil, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err)
	}

	sess, err := c.pool.Acquire(ctx, req.URL, req.Wait)
	if err != nil {
		return nil, nil, err
	}
	// Release on every outcome: success, strategy error, cancellation.
	defer c.pool.Release(sess.ID)

	result, err := strategy.Extract(ctx, sess.Page(), req.Selector, req.Options)
	if err != nil {
		return nil, nil, err
	}
	result.ElapsedMs = time.Since(start).Milliseconds()

	info := &models.CacheInfo{Key: key}
	if useCache {
		ttl := c.cacheCfg.TTLFor(string(req.Kind))
		if entry, putErr := c.cache.Put(ctx, req, result, ttl); putErr != nil {
			// The result is still returned; the failed store is logged.
			slog.Error("cache store failed", "key", key, "error", putErr)
		} else {
			info.ExpiresAt = entry.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}
	return result, info, nil
}
