// Package analysis drives the OTC generator offline and summarizes the path it
// produces, for tuning generator parameters.
package analysis

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/services/features"
	"OTCFeed/internal/services/otc"
	applogger "OTCFeed/pkg/logger"
)

// Source is the part of the generator the harness needs.
type Source interface {
	GenerateNextPrice(symbol string) (models.Tick, error)
	GetExtendedState(symbol string) (models.SymbolState, error)
	Config(symbol string) (models.SymbolConfig, error)
}

// Report summarizes one harness run.
type Report struct {
	Symbol   string
	Ticks    int
	Interval time.Duration
	Elapsed  time.Duration

	StartPrice float64
	EndPrice   float64
	PipSize    float64

	AvgPipMove float64
	MaxPipMove float64
	Up         int
	Down       int
	Flat       int
	// Bias is (up-down)/(up+down), 0 when nothing moved.
	Bias float64

	RealizedVol     float64 // annualized, from tick log returns
	MeanVariance    float64
	MaxDeviationPct float64 // largest |price-ref|/ref seen, in percent

	// phases entered during the run
	TrendPhases     int
	PullbackPhases  int
	LongestPullback int
}

type Harness struct {
	src      Source
	interval time.Duration
	l        *applogger.Logger
}

type Option func(*Harness)

// WithInterval sets the pause between ticks; 0 runs as fast as possible.
func WithInterval(d time.Duration) Option {
	return func(h *Harness) { h.interval = d }
}

// WithLogger logs every tick at debug level.
func WithLogger(l *applogger.Logger) Option {
	return func(h *Harness) { h.l = l }
}

func New(src Source, opts ...Option) *Harness {
	h := &Harness{src: src}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run generates n ticks for symbol and reports what the generator produced.
func (h *Harness) Run(ctx context.Context, symbol string, n int) (*Report, error) {
	if n <= 0 {
		return nil, fmt.Errorf("ticks must be positive, got %d", n)
	}
	cfg, err := h.src.Config(symbol)
	if err != nil {
		return nil, err
	}
	st, err := h.src.GetExtendedState(symbol)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Symbol:     symbol,
		Interval:   h.interval,
		StartPrice: st.CurrentPrice,
		PipSize:    cfg.PipSize,
	}
	prices := make([]float64, 0, n+1)
	prices = append(prices, st.CurrentPrice)

	var tickC <-chan time.Time
	if h.interval > 0 {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	start := time.Now()
	pullbackRun := 0
	sumMove, sumVar := 0.0, 0.0

	for i := 0; i < n; i++ {
		if tickC != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-tickC:
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		tick, err := h.src.GenerateNextPrice(symbol)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i, err)
		}
		st, err := h.src.GetExtendedState(symbol)
		if err != nil {
			return nil, err
		}

		prev := prices[len(prices)-1]
		move := math.Round((tick.Price - prev) / cfg.PipSize)
		switch {
		case move > 0:
			r.Up++
		case move < 0:
			r.Down++
		default:
			r.Flat++
		}
		abs := math.Abs(move)
		sumMove += abs
		r.MaxPipMove = math.Max(r.MaxPipMove, abs)
		sumVar += st.ConditionalVariance
		if st.ReferencePrice > 0 {
			r.MaxDeviationPct = math.Max(r.MaxDeviationPct, math.Abs(tick.Price-st.ReferencePrice)/st.ReferencePrice*100)
		}

		w := st.Wave
		if w.TicksInPhase == 1 {
			if w.IsPullback {
				r.PullbackPhases++
			} else {
				r.TrendPhases++
			}
		}
		if w.IsPullback {
			pullbackRun++
			if pullbackRun > r.LongestPullback {
				r.LongestPullback = pullbackRun
			}
		} else {
			pullbackRun = 0
		}

		prices = append(prices, tick.Price)
		if h.l != nil {
			h.l.Debug("tick",
				applogger.Int("n", i+1),
				applogger.String("price", otc.FormatPrice(tick.Price, cfg.PipSize)),
				applogger.Float64("pips", move),
				applogger.Bool("pullback", w.IsPullback),
			)
		}
	}

	r.Ticks = n
	r.Elapsed = time.Since(start)
	r.EndPrice = prices[len(prices)-1]
	r.AvgPipMove = sumMove / float64(n)
	r.MeanVariance = sumVar / float64(n)
	if moved := r.Up + r.Down; moved > 0 {
		r.Bias = float64(r.Up-r.Down) / float64(moved)
	}
	rets := features.ComputeLogReturns(prices)
	r.RealizedVol = features.RealizedVolatility(rets, len(rets), features.PeriodsPerYear(h.interval))
	return r, nil
}

// Write prints the report in a human readable form.
func (r *Report) Write(w io.Writer) error {
	pct := func(a int) float64 {
		if r.Ticks == 0 {
			return 0
		}
		return float64(a) / float64(r.Ticks) * 100
	}
	_, err := fmt.Fprintf(w,
		"symbol:            %s\n"+
			"ticks:             %d (interval %s, elapsed %s)\n"+
			"price:             %s -> %s\n"+
			"avg pip move:      %.3f\n"+
			"max pip move:      %.0f\n"+
			"up/down/flat:      %d (%.1f%%) / %d (%.1f%%) / %d (%.1f%%)\n"+
			"directional bias:  %+.3f\n"+
			"realized vol:      %.4f\n"+
			"mean variance:     %.6g\n"+
			"max deviation:     %.4f%%\n"+
			"phases:            %d trend / %d pullback (longest pullback %d ticks)\n",
		r.Symbol,
		r.Ticks, r.Interval, r.Elapsed.Round(time.Millisecond),
		otc.FormatPrice(r.StartPrice, r.PipSize), otc.FormatPrice(r.EndPrice, r.PipSize),
		r.AvgPipMove,
		r.MaxPipMove,
		r.Up, pct(r.Up), r.Down, pct(r.Down), r.Flat, pct(r.Flat),
		r.Bias,
		r.RealizedVol,
		r.MeanVariance,
		r.MaxDeviationPct,
		r.TrendPhases, r.PullbackPhases, r.LongestPullback,
	)
	return err
}
