// Package cache stores offline responses in named cache generations.
//
// A generation is a bucket of responses keyed by request URL. Exactly one
// generation is current at a time; stale generations are dropped wholesale
// rather than updated in place. Two backends are provided:
//
//   - RedisStorage keeps each generation in a Redis hash and indexes the
//     generation names in a sorted set ordered by creation time.
//   - MemoryStorage keeps everything in process, for tests and single-process
//     use.
//
// # Basic Usage
//
//	storage := cache.NewRedisStorage(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	c, err := storage.Open(ctx, "app-shell-v1")
//	if err != nil {
//		return err
//	}
//
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//	if err := c.Put(ctx, cache.KeyFor(req.URL), entry); err != nil {
//		return err
//	}
//
//	// Match searches every generation in creation order.
//	entry, err = storage.Match(ctx, cache.KeyFor(req.URL))
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from network
//	}
//
// # Consistency
//
// Writes are last-write-wins. There is no read-modify-write anywhere in the
// package, so concurrent Match and Put calls need no coordination beyond what
// the backend provides.
//
// # Metrics
//
//   - offline_cache_hits_total{backend}
//   - offline_cache_misses_total{backend}
//   - offline_cache_writes_total{backend}
//   - offline_cache_errors_total{backend, operation}
package cache
