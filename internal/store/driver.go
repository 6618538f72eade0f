package store

import (
	"fmt"

	"github.com/go-homelink/homelink/internal/config"
)

// New builds a Store from configuration. "redis" is the production driver;
// "memory" exists for development and tests only and loses all state on
// restart.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		return NewRedisStore(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			cfg.StoreNamespace,
			cfg.StoreTimeout,
		)
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (must be: redis, memory)", cfg.StoreDriver)
	}
}
