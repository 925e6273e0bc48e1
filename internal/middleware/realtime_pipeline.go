package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"

	"golang.org/x/time/rate"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, q *models.ReferenceQuote) error
}

// ReferencePipeline sits between a reference stream and the updater. It
// validates quotes, optionally transforms them and throttles each symbol.
type ReferencePipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	limit     rate.Limit
	burst     int
	transform func(*models.ReferenceQuote) *models.ReferenceQuote

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type PipelineOption func(*ReferencePipeline)

// WithMinInterval lets through at most one quote per symbol per d. Zero disables throttling.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *ReferencePipeline) {
		if d <= 0 {
			p.limit = rate.Inf
			return
		}
		p.limit = rate.Every(d)
	}
}

// WithBurst sets how many quotes may pass back to back.
func WithBurst(n int) PipelineOption {
	return func(p *ReferencePipeline) {
		if n > 0 {
			p.burst = n
		}
	}
}

// WithTransform sets a hook to rewrite quotes before they are forwarded.
func WithTransform(fn func(*models.ReferenceQuote) *models.ReferenceQuote) PipelineOption {
	return func(p *ReferencePipeline) { p.transform = fn }
}

// NewReferencePipeline creates a new pipeline.
func NewReferencePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ReferencePipeline {
	p := &ReferencePipeline{
		proc:     proc,
		metrics:  metrics,
		limit:    rate.Every(250 * time.Millisecond),
		burst:    1,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates, throttles and forwards a quote. Throttled quotes are dropped.
func (p *ReferencePipeline) Process(ctx context.Context, q *models.ReferenceQuote) error {
	start := time.Now()
	if err := validateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		q = p.transform(q)
		if err := validateQuote(q); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.limiter(q.Symbol).AllowN(start, 1) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, q); err != nil {
		p.metrics.RecordError("pipeline_process")
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func (p *ReferencePipeline) limiter(symbol string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[symbol]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[symbol] = l
	}
	return l
}

func validateQuote(q *models.ReferenceQuote) error {
	if q == nil {
		return fmt.Errorf("quote nil")
	}
	if q.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if q.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return fmt.Errorf("price invalid: %v", q.Price)
	}
	if q.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}
