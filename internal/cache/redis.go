package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"routecost/internal/metrics"
	"routecost/internal/opt"
)

const keyPrefix = "quote:"

// Redis stores results as JSON with a TTL so replicas share computations.
// Redis errors degrade to cache misses.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to url (redis://...) and verifies the connection.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ro)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (c *Redis) Get(ctx context.Context, key string) (opt.Result, bool) {
	b, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		metrics.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return opt.Result{}, false
	}
	if err != nil {
		log.Printf("cache: redis get: %v", err)
		metrics.CacheLookups.WithLabelValues("redis", "error").Inc()
		return opt.Result{}, false
	}
	var r opt.Result
	if err := json.Unmarshal(b, &r); err != nil {
		metrics.CacheLookups.WithLabelValues("redis", "error").Inc()
		return opt.Result{}, false
	}
	metrics.CacheLookups.WithLabelValues("redis", "hit").Inc()
	return r, true
}

func (c *Redis) Set(ctx context.Context, key string, r opt.Result) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, b, c.ttl).Err(); err != nil {
		log.Printf("cache: redis set: %v", err)
	}
}

func (c *Redis) Close() error { return c.rdb.Close() }
