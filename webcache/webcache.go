// TTL response cache with per-key request counters, layered over a
// caller-supplied fetch function.
//
// The cache itself holds no state: counters and cached bodies live in the
// key-value backend under configurable prefixes, and expiry is enforced by
// the backend. Any number of instances may share one backend, provided
// distinct logical caches use disjoint prefixes.
package webcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redtapehq/redtape/kvstore"
)

const (
	DefaultTTL          = 10 * time.Second
	DefaultCountPrefix  = "count"
	DefaultResultPrefix = "result"
)

// FetchFunc produces fresh content for a URL on a cache miss. Failures are
// not retried by the cache.
type FetchFunc func(ctx context.Context, url string) (string, error)

type Option func(*WebCache)

// WithTTL sets how long fetched content stays served from cache.
func WithTTL(ttl time.Duration) Option {
	return func(c *WebCache) { c.ttl = ttl }
}

// WithCountPrefix sets the key prefix for per-URL request counters.
func WithCountPrefix(prefix string) Option {
	return func(c *WebCache) { c.countPrefix = prefix }
}

// WithResultPrefix sets the key prefix for cached response bodies.
func WithResultPrefix(prefix string) Option {
	return func(c *WebCache) { c.resultPrefix = prefix }
}

type WebCache struct {
	kv           kvstore.Store
	fetch        FetchFunc
	ttl          time.Duration
	countPrefix  string
	resultPrefix string
}

func New(kv kvstore.Store, fetch FetchFunc, opts ...Option) *WebCache {
	c := &WebCache{
		kv:           kv,
		fetch:        fetch,
		ttl:          DefaultTTL,
		countPrefix:  DefaultCountPrefix,
		resultPrefix: DefaultResultPrefix,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *WebCache) countKey(url string) string  { return c.countPrefix + ":" + url }
func (c *WebCache) resultKey(url string) string { return c.resultPrefix + ":" + url }

// Get returns the content for url, serving from cache when a live entry
// exists. Every call increments the request counter, hit or miss. On a miss
// the fetched content is written with the configured TTL and the counter is
// reset to zero; a fetch failure propagates unchanged, writing nothing and
// leaving the counter alone.
//
// The miss path is not transactional. Two concurrent misses for one url may
// both fetch and both write; the last writer wins. There is deliberately no
// stampede protection.
func (c *WebCache) Get(ctx context.Context, url string) (string, error) {
	if _, err := c.kv.Incr(ctx, c.countKey(url)); err != nil {
		return "", err
	}
	cached, err := c.kv.Get(ctx, c.resultKey(url))
	if err == nil {
		cacheHits.Inc()
		return string(cached), nil
	}
	if err != kvstore.ErrNotFound {
		return "", err
	}
	cacheMisses.Inc()
	content, err := c.fetch(ctx, url)
	if err != nil {
		fetchErrors.Inc()
		return "", err
	}
	if err := c.kv.Set(ctx, c.countKey(url), []byte("0")); err != nil {
		return "", err
	}
	if err := c.kv.SetEx(ctx, c.resultKey(url), c.ttl, []byte(content)); err != nil {
		return "", err
	}
	return content, nil
}

// Requests reads the request counter for url: every Get attempt increments
// it, and a fresh fetch resets it to zero. Absent counters read as 0.
func (c *WebCache) Requests(ctx context.Context, url string) (int64, error) {
	raw, err := c.kv.Get(ctx, c.countKey(url))
	if err == kvstore.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("webcache: request counter for %q is not an integer: %w", url, err)
	}
	return n, nil
}
