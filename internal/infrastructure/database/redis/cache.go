package redis

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

// DescriptorCache stores encoded descriptors keyed by cache scope and
// structure. A scope is "<family>:<version>:<size>", so a resized or
// versioned family never reads entries written by another. Values are the
// strings produced by the descriptor codec, failed sentinel included, so a
// failed calculation is cached like any other.
type DescriptorCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	jitter float64
	group  singleflight.Group
}

// CacheOption configures a DescriptorCache.
type CacheOption func(*DescriptorCache)

// WithPrefix sets the key prefix. Default "molfp:".
func WithPrefix(prefix string) CacheOption {
	return func(c *DescriptorCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime. Zero keeps entries forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *DescriptorCache) { c.ttl = ttl }
}

// WithTTLJitter spreads expiry by ±fraction of the TTL. Default 0.1.
func WithTTLJitter(fraction float64) CacheOption {
	return func(c *DescriptorCache) { c.jitter = fraction }
}

func NewDescriptorCache(client *Client, log logging.Logger, opts ...CacheOption) *DescriptorCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &DescriptorCache{
		client: client,
		logger: log.Named("cache"),
		prefix: "molfp:",
		ttl:    24 * time.Hour,
		jitter: 0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key is prefix + "desc:" + scope + ":" + hex xxhash of the structure.
func (c *DescriptorCache) Key(scope, structure string) string {
	return c.prefix + "desc:" + scope + ":" + strconv.FormatUint(xxhash.Sum64String(structure), 16)
}

func (c *DescriptorCache) expiry() time.Duration {
	if c.ttl <= 0 || c.jitter <= 0 {
		return max(c.ttl, 0)
	}
	delta := float64(c.ttl) * c.jitter * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(delta)
}

// Get returns the cached value and whether it was present.
func (c *DescriptorCache) Get(ctx context.Context, scope, structure string) (string, bool, error) {
	if c.client.isClosed() {
		return "", false, ErrClientClosed
	}
	val, err := c.client.rdb.Get(ctx, c.Key(scope, structure)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrCodeCacheError, "get descriptor")
	}
	return val, true, nil
}

// Set stores an encoded descriptor.
func (c *DescriptorCache) Set(ctx context.Context, scope, structure, encoded string) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	if err := c.client.rdb.Set(ctx, c.Key(scope, structure), encoded, c.expiry()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "set descriptor")
	}
	return nil
}

// GetOrCompute returns the cached value or runs compute once per key across
// concurrent callers and caches its result. A cache read error falls through
// to compute; a cache write error is logged and swallowed.
func (c *DescriptorCache) GetOrCompute(ctx context.Context, scope, structure string, compute func(context.Context) (string, error)) (string, bool, error) {
	val, ok, err := c.Get(ctx, scope, structure)
	if err != nil {
		c.logger.Warn("descriptor cache read failed", logging.String("scope", scope), logging.Err(err))
	}
	if ok {
		return val, true, nil
	}

	key := c.Key(scope, structure)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		encoded, err := compute(ctx)
		if err != nil {
			return "", err
		}
		if err := c.Set(ctx, scope, structure, encoded); err != nil {
			c.logger.Warn("descriptor cache write failed", logging.String("scope", scope), logging.Err(err))
		}
		return encoded, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), false, nil
}

// InvalidateFamily scans and deletes every entry of a family code, across all
// of its scopes. It returns the number of keys removed.
func (c *DescriptorCache) InvalidateFamily(ctx context.Context, family string) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + "desc:" + family + ":*"
	for {
		keys, next, err := c.client.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "scan descriptors")
		}
		if len(keys) > 0 {
			n, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "delete descriptors")
			}
			deleted += n
		}
		if cursor = next; cursor == 0 {
			return deleted, nil
		}
	}
}

//Personal.AI order the ending
