package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is the connection section of the application YAML. Zero fields
// take the default tags.
type RedisConfig struct {
	Addr         string        `yaml:"addr" default:"localhost:6379"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size" default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	Prefix       string        `yaml:"prefix" default:"otc"`
}

func (c RedisConfig) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		PoolTimeout:  c.PoolTimeout,
		DialTimeout:  c.DialTimeout,
	}
}

// MemoryConfig sizes the in-process cache used when Redis is off.
type MemoryConfig struct {
	MaxSize         int           `yaml:"max_size" default:"1000"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
}

type MemoryOption func(*MemoryConfig)

func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}

// WithMemoryConfig applies the non-zero fields of cfg.
func WithMemoryConfig(cfg MemoryConfig) MemoryOption {
	return func(c *MemoryConfig) {
		if cfg.MaxSize > 0 {
			c.MaxSize = cfg.MaxSize
		}
		if cfg.CleanupInterval > 0 {
			c.CleanupInterval = cfg.CleanupInterval
		}
	}
}
