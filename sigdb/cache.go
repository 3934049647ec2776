package sigdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/contract"
)

var notFoundEntry = []byte("-")

// CachedResolver remembers hits and misses of the wrapped resolver for ttl.
// Hits are stored as the JSON entries of the returned interface so names
// and indexed flags survive. Transient errors are never cached.
type CachedResolver struct {
	inner   contract.SignatureResolver
	cache   *bigcache.BigCache
	logger  *zap.Logger
	metrics *LookupMetrics
}

func NewCachedResolver(ctx context.Context, inner contract.SignatureResolver, ttl time.Duration, logger *zap.Logger, metrics *LookupMetrics) (*CachedResolver, error) {
	config := bigcache.DefaultConfig(ttl)
	config.Shards = 64
	config.MaxEntriesInWindow = 10 * 64
	config.Verbose = false
	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating signature cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{inner: inner, cache: cache, logger: logger, metrics: metrics}, nil
}

func (c *CachedResolver) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	return c.resolve(Function, "f:"+selectorHex(selector), func() (*contract.Interface, error) {
		return c.inner.ResolveFunction(ctx, selector)
	})
}

func (c *CachedResolver) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	key := fmt.Sprintf("e:%s:%d", topicHex(topic), indexed)
	return c.resolve(Event, key, func() (*contract.Interface, error) {
		return c.inner.ResolveEvent(ctx, topic, indexed)
	})
}

func (c *CachedResolver) resolve(kind Kind, key string, lookup func() (*contract.Interface, error)) (*contract.Interface, error) {
	entry, err := c.cache.Get(key)
	switch {
	case err == nil:
		iface, err := decodeEntry(entry)
		if err == nil {
			c.metrics.observe("cache", kind, "hit")
			return iface, nil
		}
		if errors.Is(err, contract.ErrSignatureNotFound) {
			c.metrics.observe("cache", kind, "hit")
			return nil, err
		}
		c.logger.Warn("dropping corrupted signature cache entry", zap.String("key", key), zap.Error(err))
	case !errors.Is(err, bigcache.ErrEntryNotFound):
		c.logger.Warn("reading signature cache failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.observe("cache", kind, "miss")

	iface, err := lookup()
	switch {
	case err == nil:
		c.store(key, iface)
	case errors.Is(err, contract.ErrSignatureNotFound):
		c.set(key, notFoundEntry)
	}
	return iface, err
}

func (c *CachedResolver) store(key string, iface *contract.Interface) {
	data, err := json.Marshal(iface.Entries())
	if err != nil {
		c.logger.Warn("couldn't encode signature cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	c.set(key, data)
}

func (c *CachedResolver) set(key string, data []byte) {
	if err := c.cache.Set(key, data); err != nil {
		c.logger.Warn("writing signature cache failed", zap.String("key", key), zap.Error(err))
	}
}

func decodeEntry(entry []byte) (*contract.Interface, error) {
	if string(entry) == string(notFoundEntry) {
		return nil, contract.ErrSignatureNotFound
	}
	var entries []contract.Entry
	if err := json.Unmarshal(entry, &entries); err != nil {
		return nil, err
	}
	return contract.NewInterface(entries)
}

func (c *CachedResolver) Len() int {
	return c.cache.Len()
}

func (c *CachedResolver) Close() error {
	return c.cache.Close()
}
