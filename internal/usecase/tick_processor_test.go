package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository/fake"

	"github.com/stretchr/testify/require"
)

func tick(sym string, ts int64) *models.Tick {
	return &models.Tick{Symbol: sym, Price: 1.1, Timestamp: ts}
}

func TestTickProcessorRoutesByBackend(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendKafka, BackendClickHouse, BackendNone} {
		t.Run(backend, func(t *testing.T) {
			pub, store, m := &fake.TickSink{}, &fake.TickSink{}, fake.NewMetrics()
			p := NewTickProcessor(pub, store, m, backend, 1, 0)

			require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 1)))
			require.Equal(t, 1, m.TickCount(backend, "EUR/USD-OTC"))

			switch backend {
			case BackendKafka:
				require.Len(t, pub.Ticks(), 1)
				require.Empty(t, store.Ticks())
			case BackendClickHouse:
				require.Empty(t, pub.Ticks())
				require.Len(t, store.Ticks(), 1)
			default:
				require.Empty(t, pub.Ticks())
				require.Empty(t, store.Ticks())
			}
		})
	}
}

func TestTickProcessorErrors(t *testing.T) {
	ctx := context.Background()
	m := fake.NewMetrics()

	p := NewTickProcessor(nil, nil, m, "redis", 1, 0)
	require.Error(t, p.Process(ctx, tick("EUR/USD-OTC", 1)))
	require.Equal(t, 1, m.ErrorCount("process"))

	require.Error(t, p.Process(ctx, nil))

	pub := &fake.TickSink{Err: errors.New("broker down")}
	p = NewTickProcessor(pub, nil, m, BackendKafka, 1, 0)
	require.Error(t, p.ProcessBatch(ctx, []*models.Tick{tick("EUR/USD-OTC", 1)}))
	require.Equal(t, 1, m.ErrorCount("process_batch"))
	require.Equal(t, 0, m.TickCount(BackendKafka, "EUR/USD-OTC"))
}

func TestTickProcessorBatching(t *testing.T) {
	ctx := context.Background()
	store, m := &fake.TickSink{}, fake.NewMetrics()
	p := NewTickProcessor(nil, store, m, BackendClickHouse, 3, time.Hour)

	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 1)))
	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 2)))
	require.Empty(t, store.Ticks())

	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 3)))
	require.Len(t, store.Ticks(), 3)

	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 4)))
	require.NoError(t, p.Close(ctx))
	require.Len(t, store.Ticks(), 4)
	require.True(t, store.Closed())
	require.Equal(t, 4, m.TickCount(BackendClickHouse, "EUR/USD-OTC"))
}

func TestTickProcessorRunFlushesOnTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &fake.TickSink{}
	p := NewTickProcessor(nil, store, fake.NewMetrics(), BackendClickHouse, 100, 10*time.Millisecond)
	go p.Run(ctx)

	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 1)))
	require.Eventually(t, func() bool { return len(store.Ticks()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestTickProcessorKeepsFailedBatch(t *testing.T) {
	ctx := context.Background()
	store, m := &fake.TickSink{Err: errors.New("clickhouse down")}, fake.NewMetrics()
	p := NewTickProcessor(nil, store, m, BackendClickHouse, 3, time.Hour)

	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 1)))
	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 2)))
	require.Error(t, p.Process(ctx, tick("EUR/USD-OTC", 3)))
	require.Equal(t, 3, p.Pending())
	require.Equal(t, 1, m.ErrorCount("process_batch"))

	require.Error(t, p.Flush(ctx))
	require.Equal(t, 3, p.Pending())

	store.Err = nil
	require.NoError(t, p.Process(ctx, tick("EUR/USD-OTC", 4)))
	require.NoError(t, p.Flush(ctx))
	require.Zero(t, p.Pending())

	got := store.Ticks()
	require.Len(t, got, 4)
	for i, tk := range got {
		require.Equal(t, int64(i+1), tk.Timestamp)
	}
}

func TestTickProcessorBoundsRetryBuffer(t *testing.T) {
	ctx := context.Background()
	store, m := &fake.TickSink{Err: errors.New("clickhouse down")}, fake.NewMetrics()
	p := NewTickProcessor(nil, store, m, BackendClickHouse, 2, time.Hour)

	for i := 1; i <= 2*maxPendingBatches+2; i++ {
		_ = p.Process(ctx, tick("EUR/USD-OTC", int64(i)))
	}
	require.Equal(t, 2*maxPendingBatches, p.Pending())
	require.Positive(t, m.ErrorCount("buffer_overflow"))
}
