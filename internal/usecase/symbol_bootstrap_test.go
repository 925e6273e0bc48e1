package usecase

import (
	"context"
	"errors"
	"testing"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository/fake"
	"OTCFeed/internal/services/otc"

	"github.com/stretchr/testify/require"
)

func TestBootstrapRestoresFromCache(t *testing.T) {
	ctx := context.Background()
	cache := fake.NewTickCache()
	require.NoError(t, cache.SaveLast(ctx, &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.19311, Timestamp: 1}))

	g := otc.NewGenerator(otc.NewStore())
	b := NewSymbolBootstrap(g, cache, []models.MarketConfig{
		{SymbolConfig: eurUSD(), StartPrice: 1.1},
		{SymbolConfig: gbpUSD(), StartPrice: 1.27},
	}, nil)
	require.NoError(t, b.Run(ctx))

	st, err := g.GetExtendedState("EUR/USD-OTC")
	require.NoError(t, err)
	require.Equal(t, 1.19311, st.CurrentPrice)

	st, err = g.GetExtendedState("GBP/USD-OTC")
	require.NoError(t, err)
	require.Equal(t, 1.27, st.CurrentPrice)

	// second run keeps existing state
	require.NoError(t, b.Run(ctx))
}

func TestBootstrapCacheErrorFallsBack(t *testing.T) {
	cache := fake.NewTickCache()
	cache.Err = errors.New("redis down")
	g := otc.NewGenerator(otc.NewStore())
	b := NewSymbolBootstrap(g, cache, []models.MarketConfig{{SymbolConfig: eurUSD(), StartPrice: 1.1}}, nil)
	require.NoError(t, b.Run(context.Background()))

	st, err := g.GetExtendedState("EUR/USD-OTC")
	require.NoError(t, err)
	require.Equal(t, 1.1, st.CurrentPrice)
}

func TestBootstrapInvalidMarket(t *testing.T) {
	bad := eurUSD()
	bad.PipSize = 0
	b := NewSymbolBootstrap(otc.NewGenerator(otc.NewStore()), nil, []models.MarketConfig{{SymbolConfig: bad, StartPrice: 1.1}}, nil)
	require.ErrorIs(t, b.Run(context.Background()), otc.ErrInvalidConfig)
}
