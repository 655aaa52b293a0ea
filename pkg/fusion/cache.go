package fusion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps recent verdicts in Redis keyed by URL hash. The cache is a
// latency optimization only: every miss, marshal error, or unavailable
// Redis silently falls through to a fresh analysis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to Redis. A ping failure logs a warning and returns a
// nil cache, which every method tolerates.
func NewCache(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] verdict cache unavailable, continuing without: %v", err)
		client.Close()
		return nil
	}
	log.Printf("[STARTUP] verdict cache connected at %s (ttl %s)", addr, ttl)
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "verdict:" + hex.EncodeToString(sum[:16])
}

// Get returns a cached verdict for the URL, or nil on any miss or error.
func (c *Cache) Get(ctx context.Context, url string) *Verdict {
	if c == nil || url == "" {
		return nil
	}
	raw, err := c.client.Get(ctx, cacheKey(url)).Bytes()
	if err != nil {
		return nil
	}
	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// Put stores a verdict. Verdicts with degraded branches are not cached so
// a transient backend failure is not pinned for the TTL.
func (c *Cache) Put(ctx context.Context, v *Verdict) {
	if c == nil || v == nil || v.URL == "" || len(v.Degraded) > 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(v.URL), raw, c.ttl).Err(); err != nil {
		log.Printf("[WARN] verdict cache write failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() {
	if c != nil {
		c.client.Close()
	}
}
