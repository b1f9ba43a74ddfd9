package cache

import "time"

// Config configures the Redis connection. An empty URL selects MemoryStore.
type Config struct {
	RedisURL       string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	MemoryCapacity int           `env:"CACHE_MEMORY_CAPACITY" envDefault:"10000"`
}
