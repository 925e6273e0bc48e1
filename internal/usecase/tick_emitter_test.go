package usecase

import (
	"context"
	"testing"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository/fake"
	"OTCFeed/internal/services/otc"

	"github.com/stretchr/testify/require"
)

func TestEmitForwardsCachesAndRecords(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t, eurUSD())
	sink, cache, m := &fake.TickSink{}, fake.NewTickCache(), fake.NewMetrics()
	e := NewTickEmitter(g, NewTickProcessor(sink, nil, m, BackendKafka, 1, 0), cache, m, time.Second, nil)

	tk, err := e.Emit(ctx, "EUR/USD-OTC")
	require.NoError(t, err)
	require.Equal(t, []models.Tick{tk}, sink.Ticks())

	last, err := cache.Last(ctx, "EUR/USD-OTC")
	require.NoError(t, err)
	require.Equal(t, tk, *last)
	require.Equal(t, tk.Price, m.LastPrice["EUR/USD-OTC"])
	require.Contains(t, m.Variance, "EUR/USD-OTC")
	require.Equal(t, 1, m.TickCount(BackendKafka, "EUR/USD-OTC"))
}

func TestEmitUnknownSymbolCounted(t *testing.T) {
	m := fake.NewMetrics()
	e := NewTickEmitter(newGenerator(t), NewTickProcessor(nil, nil, m, BackendNone, 1, 0), nil, m, time.Second, nil)

	_, err := e.Emit(context.Background(), "NOPE")
	require.ErrorIs(t, err, otc.ErrUnknownSymbol)
	require.Equal(t, 1, m.ErrorCount("unknown_symbol"))
}

func TestEmitterLoopsPerSymbol(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := newGenerator(t, eurUSD(), gbpUSD())
	sink, m := &fake.TickSink{}, fake.NewMetrics()
	e := NewTickEmitter(g, NewTickProcessor(nil, sink, m, BackendClickHouse, 1, 0), nil, m, 5*time.Millisecond, nil)

	require.False(t, e.Track("EUR/USD-OTC"))
	e.Start(ctx)
	require.False(t, e.Track("EUR/USD-OTC"))

	require.Eventually(t, func() bool {
		return m.TickCount(BackendClickHouse, "EUR/USD-OTC") >= 3 &&
			m.TickCount(BackendClickHouse, "GBP/USD-OTC") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	e.Wait()
	require.False(t, e.Track("GBP/USD-OTC"))

	// timestamps per symbol never go backwards
	var prev int64
	for _, tk := range sink.Ticks() {
		if tk.Symbol != "EUR/USD-OTC" {
			continue
		}
		require.GreaterOrEqual(t, tk.Timestamp, prev)
		prev = tk.Timestamp
	}
}

func TestEmitterTracksSymbolAddedLater(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
	}()
	g := newGenerator(t, eurUSD())
	m := fake.NewMetrics()
	e := NewTickEmitter(g, NewTickProcessor(nil, nil, m, BackendNone, 1, 0), nil, m, 5*time.Millisecond, nil)
	e.Start(ctx)

	require.NoError(t, g.InitializeSymbol(gbpUSD(), 1.27))
	require.True(t, e.Track("GBP/USD-OTC"))
	require.Eventually(t, func() bool {
		return m.TickCount(BackendNone, "GBP/USD-OTC") > 0
	}, 2*time.Second, 5*time.Millisecond)
}
