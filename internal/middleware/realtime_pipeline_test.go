package middleware

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository/fake"

	"github.com/stretchr/testify/require"
)

type recordingProc struct {
	mu  sync.Mutex
	got []models.ReferenceQuote
	err error
}

func (p *recordingProc) Process(_ context.Context, q *models.ReferenceQuote) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, *q)
	return nil
}

func quote(symbol string, price float64) *models.ReferenceQuote {
	return &models.ReferenceQuote{Symbol: symbol, Price: price, Timestamp: time.Now().UnixMilli()}
}

func TestPipelineRejectsInvalidQuotes(t *testing.T) {
	proc := &recordingProc{}
	m := fake.NewMetrics()
	p := NewReferencePipeline(proc, m, WithMinInterval(0))

	bad := []*models.ReferenceQuote{
		nil,
		{Price: 1, Timestamp: 1},
		{Symbol: "A", Price: 1},
		{Symbol: "A", Price: 0, Timestamp: 1},
		{Symbol: "A", Price: math.NaN(), Timestamp: 1},
		{Symbol: "A", Price: math.Inf(1), Timestamp: 1},
		{Symbol: "A", Price: 1, Volume: -1, Timestamp: 1},
	}
	for _, q := range bad {
		require.Error(t, p.Process(context.Background(), q))
	}
	require.Empty(t, proc.got)
	require.Equal(t, len(bad), m.ErrorCount("pipeline_validate"))
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &recordingProc{}
	m := fake.NewMetrics()
	p := NewReferencePipeline(proc, m, WithMinInterval(time.Hour))

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, quote("OANDA:EUR_USD", 1.1)))
	require.NoError(t, p.Process(ctx, quote("OANDA:EUR_USD", 1.2)))
	require.NoError(t, p.Process(ctx, quote("OANDA:GBP_USD", 1.3)))

	require.Len(t, proc.got, 2)
	require.Equal(t, 1.1, proc.got[0].Price)
	require.Equal(t, "OANDA:GBP_USD", proc.got[1].Symbol)
	require.Equal(t, 1, m.ErrorCount("pipeline_throttle"))
}

func TestPipelineBurst(t *testing.T) {
	proc := &recordingProc{}
	p := NewReferencePipeline(proc, fake.NewMetrics(), WithMinInterval(time.Hour), WithBurst(3))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Process(context.Background(), quote("A", 1)))
	}
	require.Len(t, proc.got, 3)
}

func TestPipelineTransform(t *testing.T) {
	proc := &recordingProc{}
	m := fake.NewMetrics()
	p := NewReferencePipeline(proc, m, WithMinInterval(0), WithTransform(func(q *models.ReferenceQuote) *models.ReferenceQuote {
		cp := *q
		cp.Price = q.Price * 2
		return &cp
	}))
	require.NoError(t, p.Process(context.Background(), quote("A", 1.5)))
	require.Equal(t, 3.0, proc.got[0].Price)

	zero := NewReferencePipeline(proc, m, WithMinInterval(0), WithTransform(func(q *models.ReferenceQuote) *models.ReferenceQuote {
		return &models.ReferenceQuote{Symbol: q.Symbol, Timestamp: q.Timestamp}
	}))
	require.Error(t, zero.Process(context.Background(), quote("A", 1.5)))
	require.Equal(t, 1, m.ErrorCount("pipeline_transform_invalid"))
}

func TestPipelineDownstreamError(t *testing.T) {
	proc := &recordingProc{err: errors.New("down")}
	m := fake.NewMetrics()
	p := NewReferencePipeline(proc, m, WithMinInterval(0))

	err := p.Process(context.Background(), quote("A", 1))
	require.ErrorIs(t, err, proc.err)
	require.Equal(t, 1, m.ErrorCount("pipeline_process"))
}
