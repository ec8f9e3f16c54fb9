// Package redisad caches rendered query results keyed by filter
// configuration, so repeated identical filters skip the scan-and-render
// path entirely.
package redisad

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"lodge_catalog/internal/adapters/observability"
	"lodge_catalog/internal/domain"
)

type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, _ := json.Marshal(v)
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

// ResultKey derives a stable cache key from a filter configuration.
// Search text and amenity order are normalized first so equivalent
// configurations share an entry.
func ResultKey(cfg domain.FilterConfig) string {
	cfg.SearchText = strings.ToLower(strings.TrimSpace(cfg.SearchText))
	amen := append([]string(nil), cfg.RequiredAmenities...)
	sort.Strings(amen)
	cfg.RequiredAmenities = amen
	b, _ := json.Marshal(cfg)
	sum := sha1.Sum(b)
	return "results:" + hex.EncodeToString(sum[:])
}
