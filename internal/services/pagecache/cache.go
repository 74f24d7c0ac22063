// Package pagecache memoizes paginated game listings.
//
// Entries expire after a period without reads, the total entry count is
// bounded, and concurrent misses on one key share a single computation.
package pagecache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/telemetry"
)

const (
	DefaultCapacity = 10_000
	DefaultIdleTTL  = 10 * time.Minute
)

// Key identifies one cached page. A zero Category is the listing across all
// categories.
type Key struct {
	Page     int
	Kind     games.Kind
	Category games.Category
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Kind, k.Category, k.Page)
}

type item[V any] struct {
	value      V
	lastAccess atomic.Int64 // unix nanos
}

// Compute produces the value for a missing key.
type Compute[V any] func(ctx context.Context) (V, error)

// Cache is safe for concurrent use. Values are shared between callers and
// must be treated as read-only.
type Cache[V any] struct {
	entries *lru.Cache[Key, *item[V]]
	group   singleflight.Group
	// gen is bumped by Invalidate; computations started under an older
	// generation return their value but do not install it. installMu makes
	// the generation check and the install one step relative to the bump.
	gen       atomic.Uint64
	installMu sync.Mutex

	idleTTL time.Duration
	now     func() time.Time
	metrics *telemetry.CacheMetrics
	log     logrus.FieldLogger
}

type config struct {
	capacity int
	now      func() time.Time
	metrics  *telemetry.CacheMetrics
	log      logrus.FieldLogger
}

// Option configures a Cache.
type Option func(*config)

func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func WithMetrics(m *telemetry.CacheMetrics) Option {
	return func(c *config) { c.metrics = m }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) { c.log = log }
}

// New creates a cache whose entries expire after idleTTL without access.
func New[V any](idleTTL time.Duration, opts ...Option) (*Cache[V], error) {
	cfg := config{capacity: DefaultCapacity, now: time.Now, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	entries, err := lru.New[Key, *item[V]](cfg.capacity)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	return &Cache[V]{
		entries: entries,
		idleTTL: idleTTL,
		now:     cfg.now,
		metrics: cfg.metrics,
		log:     cfg.log.WithField("component", "pagecache"),
	}, nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// GetOr returns the cached value for key, running compute on a miss.
//
// Concurrent misses on the same key run compute once and share its result.
// compute runs detached from ctx cancellation so that one caller giving up
// does not fail the others; a cancelled caller returns ctx.Err() immediately.
// Failed computations are not cached and surface as internal errors.
func (c *Cache[V]) GetOr(ctx context.Context, key Key, compute Compute[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		c.metrics.RecordLookup(ctx, key.Kind.String(), true)
		return v, nil
	}
	c.metrics.RecordLookup(ctx, key.Kind.String(), false)

	gen := c.gen.Load()
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%d|%s", gen, key), func() (any, error) {
		v, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.installIfCurrent(key, v, gen)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.log.WithError(res.Err).WithField("key", key.String()).Warn("page computation failed")
			return zero, apierror.Internal("failed to load page", res.Err)
		}
		return res.Val.(V), nil
	}
}

func (c *Cache[V]) lookup(key Key) (V, bool) {
	var zero V
	it, ok := c.entries.Get(key)
	if !ok {
		return zero, false
	}
	now := c.now().UnixNano()
	if c.expired(it, now) {
		c.entries.Remove(key)
		return zero, false
	}
	it.lastAccess.Store(now)
	return it.value, true
}

// installIfCurrent stores v unless an Invalidate started after gen was read.
// An Invalidate bumping gen after the install removes the entry in its scan.
func (c *Cache[V]) installIfCurrent(key Key, v V, gen uint64) bool {
	c.installMu.Lock()
	defer c.installMu.Unlock()
	if c.gen.Load() != gen {
		return false
	}
	it := &item[V]{value: v}
	it.lastAccess.Store(c.now().UnixNano())
	c.entries.Add(key, it)
	return true
}

func (c *Cache[V]) bumpGeneration() {
	c.installMu.Lock()
	c.gen.Add(1)
	c.installMu.Unlock()
}

func (c *Cache[V]) expired(it *item[V], now int64) bool {
	return now-it.lastAccess.Load() >= c.idleTTL.Nanoseconds()
}

// Invalidate drops every entry of kind whose category is category or which
// spans all categories. A zero category drops every entry of kind. Entries of
// other kinds are untouched.
func (c *Cache[V]) Invalidate(ctx context.Context, kind games.Kind, category games.Category) int {
	c.bumpGeneration()

	removed := 0
	for _, k := range c.entries.Keys() {
		if k.Kind != kind {
			continue
		}
		if category.IsZero() || k.Category.IsZero() || k.Category == category {
			if c.entries.Remove(k) {
				removed++
			}
		}
	}
	c.metrics.RecordInvalidation(ctx, kind.String(), removed)
	c.log.WithFields(logrus.Fields{
		"kind":     kind,
		"category": category,
		"removed":  removed,
	}).Debug("page cache invalidated")
	return removed
}

// EvictIdle removes entries past their idle TTL and returns how many.
func (c *Cache[V]) EvictIdle() int {
	now := c.now().UnixNano()
	removed := 0
	for _, k := range c.entries.Keys() {
		it, ok := c.entries.Peek(k)
		if ok && c.expired(it, now) && c.entries.Remove(k) {
			removed++
		}
	}
	return removed
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (c *Cache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.EvictIdle(); n > 0 {
				c.log.WithField("removed", n).Debug("evicted idle pages")
			}
		}
	}
}
