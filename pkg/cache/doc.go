// Package cache stores raw Census API response bodies in Redis.
//
// ACS releases are published once and never change, so a response fetched
// for a given query can be reused by later runs. Entries are keyed by the
// request host, path and query parameters (the API key is never part of the
// key). The body is stored unwrapped and Redis expires it after a fixed TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 24*time.Hour)
//
//	key, err := cache.KeyFromURL(requestURL)
//	if err != nil {
//		return err
//	}
//
//	body, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		_ = manager.Set(ctx, key, body)
//	}
//
// # Metrics
//
//   - acs_cache_hits_total{layer="redis"} - Cache hits
//   - acs_cache_misses_total - Cache misses
//   - acs_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - acs_cache_errors_total{operation} - Cache operation errors
package cache
