package config

import (
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a client, it connects lazily on the first command.
func NewRedisClient(c RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}
