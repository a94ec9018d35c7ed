package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fillIfCurrent writes ARGV[3] to KEYS[1] only when the key version
// (KEYS[2]) and the epoch (KEYS[3]) still match ARGV[1] and ARGV[2].
var fillIfCurrent = redis.NewScript(`
local ver = redis.call('GET', KEYS[2]) or '0'
local epoch = redis.call('GET', KEYS[3]) or '0'
if ver ~= ARGV[1] or epoch ~= ARGV[2] then
    return 0
end
redis.call('SET', KEYS[1], ARGV[3], 'PX', ARGV[4])
return 1
`)

// Redis is a Cache backed by a shared Redis instance.  Values are stored
// as JSON under prefix:data:key with a server-side TTL, next to a version
// counter per key and one epoch counter for the prefix.  Every Redis
// error is logged and treated as a miss.
type Redis[V any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis returns a Redis cache.  The caller owns rdb.
func NewRedis[V any](rdb *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Redis[V] {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis[V]{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

func (c *Redis[V]) key(k string) string        { return c.prefix + ":data:" + k }
func (c *Redis[V]) versionKey(k string) string { return c.prefix + ":ver:" + k }
func (c *Redis[V]) epochKey() string           { return c.prefix + ":epoch" }

func (c *Redis[V]) Get(ctx context.Context, key string) (V, Version, bool) {
	var v V
	vals, err := c.rdb.MGet(ctx, c.key(key), c.versionKey(key), c.epochKey()).Result()
	if err != nil || len(vals) != 3 {
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return v, Version{}, false
	}
	ver := Version{Key: counter(vals[1]), Epoch: counter(vals[2])}
	raw, ok := vals[0].(string)
	if !ok {
		return v, ver, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.log.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return v, ver, false
	}
	return v, Version{}, true
}

func (c *Redis[V]) Set(ctx context.Context, key string, value V, ver Version) bool {
	bs, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	stored, err := fillIfCurrent.Run(ctx, c.rdb,
		[]string{c.key(key), c.versionKey(key), c.epochKey()},
		strconv.FormatUint(ver.Key, 10),
		strconv.FormatUint(ver.Epoch, 10),
		bs,
		c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return stored == 1
}

func (c *Redis[V]) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		c.invalidateAll(ctx)
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Del(ctx, c.key(k))
			pipe.Incr(ctx, c.versionKey(k))
		}
		return nil
	})
	if err != nil {
		c.log.Error("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// invalidateAll bumps the epoch before deleting, so fills that raced the
// scan are rejected.
func (c *Redis[V]) invalidateAll(ctx context.Context) {
	if err := c.rdb.Incr(ctx, c.epochKey()).Err(); err != nil {
		c.log.Error("cache invalidate failed", zap.String("prefix", c.prefix), zap.Error(err))
		return
	}
	iter := c.rdb.Scan(ctx, 0, c.prefix+":data:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Error("cache invalidate failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("cache scan failed", zap.String("prefix", c.prefix), zap.Error(err))
	}
}

// counter parses an MGET slot holding an INCR counter; missing is zero.
func counter(v interface{}) uint64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}
