// Package cache provides tenant-aware key-value caching.
//
// Keys are prefixed with the namespace of the execution unit: "landlord:" on
// the central domain and "tenant:<id>:" while a tenant is active. The prefix
// is switched by SettingsTask, which also materializes the tenant settings
// under "<prefix>settings".
//
// Two Store implementations are provided: MemoryStore, an LRU-bounded store
// for single-process deployments and tests, and RedisStore on go-redis.
//
//	client, err := cache.ConnectRedis(ctx, cfg)
//	store := cache.NewRedisStore(client)
//	settings := cache.NewSettingsTask(store)
//
//	count, err := cache.RememberForever(ctx, store, "sessions.count", func(ctx context.Context) (int, error) {
//	    return countSessions(ctx)
//	})
package cache
