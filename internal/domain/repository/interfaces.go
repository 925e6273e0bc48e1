package repository

import (
	"context"
	"errors"
	"time"

	"OTCFeed/internal/domain/models"
)

// ReferenceStream delivers real-market quotes used to anchor OTC prices.
type ReferenceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	// SubscribeSymbol adds symbol to the subscription set, subscribing
	// right away when connected.
	SubscribeSymbol(ctx context.Context, symbol string) error
	Read(ctx context.Context) (<-chan *models.ReferenceQuote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

type TickStorage interface {
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error)
	Health(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned when a lookup has no result, e.g. no cached tick.
var ErrNotFound = errors.New("not found")

// TickCache keeps the last emitted tick per symbol.
type TickCache interface {
	SaveLast(ctx context.Context, t *models.Tick) error
	Last(ctx context.Context, symbol string) (*models.Tick, error)
	// LastMany omits symbols with nothing cached.
	LastMany(ctx context.Context, symbols []string) (map[string]models.Tick, error)
	Forget(ctx context.Context, symbol string) error
}

type Metrics interface {
	RecordTick(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordReferencePrice(symbol string, price float64)
	RecordVariance(symbol string, variance float64)
	RecordLatency(op string, seconds float64)
}
