package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cppla/blogthread/config"
)

const (
	cacheOpTimeout    = 2 * time.Second
	cacheScanTimeout  = 3 * time.Second
	cacheDeleteBatch  = 500
	cacheScanPageSize = 1000
)

// CacheGetBytes returns the cached value of key. A miss, a Redis error and a disabled cache
// all read as false.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// CacheSetJSON stores v as JSON. A non-positive ttl means CACHE_TTL_SECONDS.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		if Sugar != nil {
			Sugar.Warnf("cache encode failed key=%s err=%v", key, err)
		}
		return
	}
	if ttl <= 0 {
		ttl = time.Duration(config.Get().CacheTTLSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil && Sugar != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix unlinks every key under prefix.
func InvalidateByPrefix(prefix string) {
	InvalidateByPrefixes(prefix)
}

// InvalidateByPrefixes walks each prefix with SCAN and unlinks matches in batches.
func InvalidateByPrefixes(prefixes ...string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheScanTimeout)
	defer cancel()

	batch := make([]string, 0, cacheDeleteBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := rc.Unlink(ctx, batch...).Err(); err != nil && Sugar != nil {
			Sugar.Warnf("cache invalidate failed keys=%d err=%v", len(batch), err)
		}
		batch = batch[:0]
	}
	for _, prefix := range prefixes {
		iter := rc.Scan(ctx, 0, prefix+"*", cacheScanPageSize).Iterator()
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == cacheDeleteBatch {
				flush()
			}
		}
		if err := iter.Err(); err != nil && Sugar != nil {
			Sugar.Warnf("cache scan failed prefix=%s err=%v", prefix, err)
		}
	}
	flush()
}
