package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/mcp-zendesk/internal/logging"
)

// DefaultTTL is how long a loaded knowledge base is served before reloading.
const DefaultTTL = time.Hour

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// context of the caller that started it.
const DefaultLoadTimeout = 2 * time.Minute

const defaultKey = "knowledge-base"

// Loader fetches a fresh knowledge base from Zendesk.
type Loader func(ctx context.Context) (*KnowledgeBase, error)

// CacheMetricsRecorder records cache hits and misses per backend.
type CacheMetricsRecorder interface {
	RecordCacheHit(ctx context.Context, backend string)
	RecordCacheMiss(ctx context.Context, backend string)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordCacheHit(context.Context, string)  {}
func (noopMetricsRecorder) RecordCacheMiss(context.Context, string) {}

// Cache serves the knowledge base from a Store and reloads it through a
// Loader when the entry expires. Concurrent misses share one load.
type Cache struct {
	store       Store
	ttl         time.Duration
	loadTimeout time.Duration
	key         string
	logger      *slog.Logger
	metrics     CacheMetricsRecorder

	loadGroup singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds each shared load.
func WithLoadTimeout(timeout time.Duration) CacheOption {
	return func(c *Cache) {
		if timeout > 0 {
			c.loadTimeout = timeout
		}
	}
}

// WithKey sets the store key, e.g. to separate Zendesk accounts sharing a
// Redis instance.
func WithKey(key string) CacheOption {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheMetrics sets the metrics recorder.
func WithCacheMetrics(m CacheMetricsRecorder) CacheOption {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCache creates a Cache over store. A nil store means a MemoryStore.
func NewCache(store Store, opts ...CacheOption) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store:       store,
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		key:         defaultKey,
		logger:      slog.Default(),
		metrics:     noopMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend names the underlying store.
func (c *Cache) Backend() string {
	return c.store.Backend()
}

// Get returns the cached knowledge base, loading it on a miss. The boolean
// reports a cache hit. Store failures are logged and treated as misses so a
// Redis outage degrades to direct loads.
func (c *Cache) Get(ctx context.Context, load Loader) (*KnowledgeBase, bool, error) {
	if kb, ok := c.lookup(ctx); ok {
		c.metrics.RecordCacheHit(ctx, c.store.Backend())
		return kb, true, nil
	}
	c.metrics.RecordCacheMiss(ctx, c.store.Backend())

	// The load is shared, so it runs detached from ctx. A caller that gives
	// up stops waiting without failing the others.
	results := c.loadGroup.DoChan(c.key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		return c.load(loadCtx, load)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*KnowledgeBase), false, nil
	}
}

func (c *Cache) load(ctx context.Context, load Loader) (*KnowledgeBase, error) {
	if kb, ok := c.lookup(ctx); ok {
		return kb, nil
	}

	kb, err := load(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(kb)
	if err != nil {
		return nil, fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	if err := c.store.Set(ctx, c.key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to store knowledge base", "backend", c.store.Backend(), logging.SanitizedErr(err))
	}
	c.logger.Debug("Knowledge base loaded",
		"sections", kb.Metadata.Sections,
		"articles", kb.Metadata.TotalArticles,
		"ttl", c.ttl)
	return kb, nil
}

// Invalidate drops the cached entry.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, c.key)
}

// Close closes the store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) lookup(ctx context.Context) (*KnowledgeBase, bool) {
	data, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("Knowledge base cache read failed", "backend", c.store.Backend(), logging.SanitizedErr(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var kb KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		c.logger.Warn("Discarding undecodable knowledge base entry", logging.Err(err))
		return nil, false
	}
	return &kb, true
}
