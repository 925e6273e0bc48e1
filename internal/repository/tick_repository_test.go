package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	"OTCFeed/pkg/cache"
	pkgkafka "OTCFeed/pkg/kafka"

	"github.com/stretchr/testify/require"
)

func TestTickSchema(t *testing.T) {
	stmts := TickSchema("ticks_test")
	require.Len(t, stmts, 1)
	require.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS ticks_test")
	require.Contains(t, stmts[0], "ORDER BY (symbol, ts)")
}

func TestInsertStatement(t *testing.T) {
	ticks := []*models.Tick{
		{Symbol: "EUR/USD-OTC", Price: 1.1, Timestamp: 1700000000000},
		nil,
		{Symbol: "", Price: 1.2, Timestamp: 1700000000001},
		{Symbol: "GBP/USD-OTC", Price: 1.3, Timestamp: 1700000000002},
	}
	q, args := insertStatement(DefaultTickTable, ticks)
	require.True(t, strings.HasPrefix(q, "INSERT INTO otc_ticks (ts, symbol, price, source) VALUES"))
	require.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?)"))
	require.Len(t, args, 8)
	require.Equal(t, time.UnixMilli(1700000000000).UTC(), args[0])
	require.Equal(t, "EUR/USD-OTC", args[1])
	require.Equal(t, 1.1, args[2])
	require.Equal(t, "GBP/USD-OTC", args[5])
}

func TestInsertStatementEmpty(t *testing.T) {
	q, args := insertStatement(DefaultTickTable, []*models.Tick{nil, {Symbol: "X"}})
	require.Empty(t, q)
	require.Nil(t, args)
}

func TestNewClickHouseTickStorageDefaults(t *testing.T) {
	s := NewClickHouseTickStorage(nil, "", nil)
	require.Equal(t, DefaultTickTable, s.table)
	require.NoError(t, s.Close())
	require.NoError(t, s.StoreBatch(context.Background(), nil))
}

type fakeProducer struct {
	topic  string
	msgs   []pkgkafka.Message
	err    error
	closed bool
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaTickPublisher(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaTickPublisher{producer: fp, topic: "otc.ticks"}
	ctx := context.Background()

	require.NoError(t, p.PublishBatch(ctx, nil))
	require.Empty(t, fp.msgs)

	require.NoError(t, p.PublishBatch(ctx, []*models.Tick{
		{Symbol: "EUR/USD-OTC", Price: 1.1, Timestamp: 1},
		{Symbol: "BTC/USD-OTC", Price: 65000, Timestamp: 1},
	}))
	require.Equal(t, "otc.ticks", fp.topic)
	require.Len(t, fp.msgs, 2)
	require.Equal(t, []byte("EUR/USD-OTC"), fp.msgs[0].Key)
	require.Equal(t, []byte("BTC/USD-OTC"), fp.msgs[1].Key)
	trace := fp.msgs[0].Headers["trace_id"]
	require.Len(t, trace, 36)
	require.Equal(t, trace, fp.msgs[1].Headers["trace_id"])

	require.NoError(t, p.Publish(ctx, &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.2, Timestamp: 2}))
	require.Len(t, fp.msgs, 3)
	require.NotEqual(t, trace, fp.msgs[2].Headers["trace_id"])

	fp.err = errors.New("broker down")
	require.Error(t, p.Publish(ctx, &models.Tick{Symbol: "EUR/USD-OTC"}))

	require.NoError(t, p.Close())
	require.True(t, fp.closed)
}

func TestCacheTickCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	tc := NewCacheTickCache(mc, time.Minute)
	ctx := context.Background()

	_, err := tc.Last(ctx, "EUR/USD-OTC")
	require.ErrorIs(t, err, domrepo.ErrNotFound)

	require.NoError(t, tc.SaveLast(ctx, &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.1, Timestamp: 10}))
	require.NoError(t, tc.SaveLast(ctx, &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.2, Timestamp: 11}))
	require.NoError(t, tc.SaveLast(ctx, &models.Tick{Symbol: "XAU/USD-OTC", Price: 2300, Timestamp: 11}))

	got, err := tc.Last(ctx, "EUR/USD-OTC")
	require.NoError(t, err)
	require.Equal(t, models.Tick{Symbol: "EUR/USD-OTC", Price: 1.2, Timestamp: 11}, *got)

	many, err := tc.LastMany(ctx, []string{"EUR/USD-OTC", "XAU/USD-OTC", "GBP/USD-OTC"})
	require.NoError(t, err)
	require.Len(t, many, 2)
	require.Equal(t, 2300.0, many["XAU/USD-OTC"].Price)

	require.NoError(t, tc.Forget(ctx, "XAU/USD-OTC"))
	_, err = tc.Last(ctx, "XAU/USD-OTC")
	require.ErrorIs(t, err, domrepo.ErrNotFound)
}
