package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"OTCFeed/internal/domain/models"
	drepo "OTCFeed/internal/domain/repository"
	applogger "OTCFeed/pkg/logger"
)

const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"

	// failed batches are kept for retry up to this many batches; older
	// ticks are dropped past that.
	maxPendingBatches = 100
)

// TickProcessor routes generated ticks to the configured backend. With a
// batch size above one, ticks are buffered and flushed when the buffer is
// full or by Run every batch timeout. A batch the backend rejects goes back
// to the front of the buffer and is retried on the next flush.
type TickProcessor struct {
	pub     drepo.TickPublisher
	store   drepo.TickStorage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
	l       *applogger.Logger

	mu  sync.Mutex
	buf []*models.Tick
}

type ProcessorOption func(*TickProcessor)

func WithProcessorLogger(l *applogger.Logger) ProcessorOption {
	return func(p *TickProcessor) {
		if l != nil {
			p.l = l
		}
	}
}

// NewTickProcessor creates a new TickProcessor instance.
func NewTickProcessor(
	pub drepo.TickPublisher,
	store drepo.TickStorage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
	opts ...ProcessorOption,
) *TickProcessor {
	if backend == "" {
		backend = BackendNone
	}
	if batchTO <= 0 {
		batchTO = time.Second
	}
	p := &TickProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
		l:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *TickProcessor) Backend() string { return p.backend }

// Process routes a single tick, or buffers it when batching is enabled.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	if p.batchSz <= 1 {
		return p.send(ctx, []*models.Tick{t}, "process")
	}

	cp := *t
	p.mu.Lock()
	p.buf = append(p.buf, &cp)
	if len(p.buf) < p.batchSz {
		p.mu.Unlock()
		return nil
	}
	batch := p.buf
	p.buf = nil
	p.mu.Unlock()
	return p.sendOrRequeue(ctx, batch, "process_batch")
}

// ProcessBatch routes ticks in one backend call.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	return p.send(ctx, ticks, "process_batch")
}

// Flush sends whatever is buffered.
func (p *TickProcessor) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.buf
	p.buf = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return p.sendOrRequeue(ctx, batch, "flush")
}

// Pending returns the number of buffered ticks.
func (p *TickProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

func (p *TickProcessor) sendOrRequeue(ctx context.Context, batch []*models.Tick, op string) error {
	err := p.send(ctx, batch, op)
	if err == nil {
		return nil
	}
	p.mu.Lock()
	p.buf = append(batch, p.buf...)
	if limit := maxPendingBatches * p.batchSz; len(p.buf) > limit {
		dropped := len(p.buf) - limit
		p.buf = append([]*models.Tick(nil), p.buf[dropped:]...)
		p.metrics.RecordError("buffer_overflow")
		p.l.Warn("tick buffer full, dropping oldest", applogger.Int("dropped", dropped))
	}
	p.mu.Unlock()
	return err
}

// Run flushes the buffer every batch timeout until ctx is done.
func (p *TickProcessor) Run(ctx context.Context) {
	if p.batchSz <= 1 {
		return
	}
	t := time.NewTicker(p.batchTO)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := p.Flush(ctx); err != nil {
				p.l.Error("tick flush failed",
					applogger.String("backend", p.backend),
					applogger.Int("pending", p.Pending()),
					applogger.Error(err),
				)
			}
		}
	}
}

func (p *TickProcessor) send(ctx context.Context, ticks []*models.Tick, op string) error {
	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishBatch(ctx, ticks)
	case BackendClickHouse:
		err = p.store.StoreBatch(ctx, ticks)
	case BackendNone:
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError(op)
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, t := range ticks {
		p.metrics.RecordTick(p.backend, t.Symbol)
	}
	p.metrics.RecordLatency(op, time.Since(start).Seconds())
	return nil
}

// Close flushes pending ticks and closes the backends.
func (p *TickProcessor) Close(ctx context.Context) error {
	err := p.Flush(ctx)
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
	return err
}
