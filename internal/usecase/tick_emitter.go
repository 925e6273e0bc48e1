package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"OTCFeed/internal/domain/models"
	drepo "OTCFeed/internal/domain/repository"
	"OTCFeed/internal/services/otc"
	applogger "OTCFeed/pkg/logger"
)

// TickSource is the generator surface the emitter drives.
type TickSource interface {
	GenerateNextPrice(symbol string) (models.Tick, error)
	GetExtendedState(symbol string) (models.SymbolState, error)
	Symbols() []string
}

// TickEmitter runs one loop per symbol producing a tick every interval.
// Ticks for a symbol are produced strictly one after another.
type TickEmitter struct {
	src      TickSource
	proc     *TickProcessor
	cache    drepo.TickCache
	metrics  drepo.Metrics
	interval time.Duration
	l        *applogger.Logger

	mu      sync.Mutex
	ctx     context.Context
	running map[string]bool
	wg      sync.WaitGroup
}

func NewTickEmitter(
	src TickSource,
	proc *TickProcessor,
	cache drepo.TickCache,
	metrics drepo.Metrics,
	interval time.Duration,
	l *applogger.Logger,
) *TickEmitter {
	if interval <= 0 {
		interval = 550 * time.Millisecond
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &TickEmitter{
		src:      src,
		proc:     proc,
		cache:    cache,
		metrics:  metrics,
		interval: interval,
		l:        l,
		running:  make(map[string]bool),
	}
}

// Start launches a loop for every symbol currently known to the source.
func (e *TickEmitter) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
	for _, s := range e.src.Symbols() {
		e.Track(s)
	}
	e.l.Info("tick emitter started", applogger.Duration("interval", e.interval))
}

// Track starts emitting for symbol if the emitter is running and no loop
// exists yet. It reports whether a loop was started.
func (e *TickEmitter) Track(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil || e.ctx.Err() != nil || e.running[symbol] {
		return false
	}
	e.running[symbol] = true
	e.wg.Add(1)
	go e.loop(e.ctx, symbol)
	return true
}

// Wait blocks until every loop has exited.
func (e *TickEmitter) Wait() { e.wg.Wait() }

func (e *TickEmitter) loop(ctx context.Context, symbol string) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.running, symbol)
		e.mu.Unlock()
	}()

	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := e.Emit(ctx, symbol); err != nil {
				if errors.Is(err, otc.ErrUnknownSymbol) {
					continue
				}
				e.l.Warn("emit tick failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
	}
}

// Emit generates one tick for symbol and hands it downstream.
func (e *TickEmitter) Emit(ctx context.Context, symbol string) (models.Tick, error) {
	start := time.Now()
	tick, err := e.src.GenerateNextPrice(symbol)
	if err != nil {
		if errors.Is(err, otc.ErrUnknownSymbol) {
			e.metrics.RecordError("unknown_symbol")
		} else {
			e.metrics.RecordError("generate")
		}
		return models.Tick{}, err
	}
	e.metrics.RecordLastPrice(symbol, tick.Price)
	if st, err := e.src.GetExtendedState(symbol); err == nil {
		e.metrics.RecordVariance(symbol, st.ConditionalVariance)
	}
	e.metrics.RecordLatency("generate", time.Since(start).Seconds())

	if e.cache != nil {
		if err := e.cache.SaveLast(ctx, &tick); err != nil {
			e.metrics.RecordError("cache_save")
		}
	}
	if err := e.proc.Process(ctx, &tick); err != nil {
		return tick, err
	}
	return tick, nil
}
