package repository

import (
	"context"
	"errors"
	"time"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	"OTCFeed/pkg/cache"
)

const lastTickPrefix = "tick:last:"

// CacheTickCache stores the last tick per symbol in a cache.Service.
type CacheTickCache struct {
	c   cache.Service
	ttl time.Duration
}

var _ domrepo.TickCache = (*CacheTickCache)(nil)

func NewCacheTickCache(c cache.Service, ttl time.Duration) *CacheTickCache {
	return &CacheTickCache{c: c, ttl: ttl}
}

func (t *CacheTickCache) SaveLast(ctx context.Context, tick *models.Tick) error {
	return t.c.Set(ctx, lastTickPrefix+tick.Symbol, tick, t.ttl)
}

func (t *CacheTickCache) Last(ctx context.Context, symbol string) (*models.Tick, error) {
	var tick models.Tick
	if err := t.c.Get(ctx, lastTickPrefix+symbol, &tick); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, err
	}
	return &tick, nil
}

func (t *CacheTickCache) Forget(ctx context.Context, symbol string) error {
	return t.c.Delete(ctx, lastTickPrefix+symbol)
}

// LastMany returns the cached ticks found for symbols; missing ones are omitted.
func (t *CacheTickCache) LastMany(ctx context.Context, symbols []string) (map[string]models.Tick, error) {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = lastTickPrefix + s
	}
	byKey, err := cache.MGetTyped[models.Tick](ctx, t.c, keys...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Tick, len(byKey))
	for _, tick := range byKey {
		out[tick.Symbol] = tick
	}
	return out, nil
}
