package cache

import (
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/require"
)

func TestRedisKeyPrefix(t *testing.T) {
	c := &RedisCache{prefix: "otc"}
	require.Equal(t, "otc:tick:last:EUR/USD-OTC", c.key("tick:last:EUR/USD-OTC"))
	require.Equal(t, []string{"otc:a", "otc:b"}, c.keys([]string{"a", "b"}))

	bare := &RedisCache{}
	require.Equal(t, "a", bare.key("a"))
}

func TestRedisConfigOptions(t *testing.T) {
	cfg := RedisConfig{Addr: "redis:6380", DB: 2}
	require.NoError(t, defaults.Set(&cfg))

	opts := cfg.options()
	require.Equal(t, "redis:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 10, opts.PoolSize)
	require.Equal(t, 5*time.Second, opts.DialTimeout)
	require.Equal(t, "otc", cfg.Prefix)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	require.Error(t, err)
}
