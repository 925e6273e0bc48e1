package otc

import (
	"math"
	"time"

	"OTCFeed/internal/domain/models"
)

// varianceCap bounds the conditional variance as a multiple of its long-run level.
const varianceCap = 50.0

// Generator advances symbol states one tick at a time. Ticks for one symbol
// are strictly sequential; different symbols may be driven concurrently.
type Generator struct {
	store *Store
}

// NewGenerator creates a generator over store.
func NewGenerator(store *Store) *Generator {
	return &Generator{store: store}
}

// Store returns the underlying state store.
func (g *Generator) Store() *Store { return g.store }

func (g *Generator) InitializeSymbol(cfg models.SymbolConfig, startPrice float64) error {
	return g.store.InitializeSymbol(cfg, startPrice)
}

func (g *Generator) ResetSymbol(cfg models.SymbolConfig, startPrice float64) error {
	return g.store.ResetSymbol(cfg, startPrice)
}

// UpdateRealPrice pushes a real-market reference price for symbol.
func (g *Generator) UpdateRealPrice(symbol string, price float64) error {
	return g.store.UpdateReferencePrice(symbol, price)
}

// GetExtendedState returns the diagnostic state of symbol.
func (g *Generator) GetExtendedState(symbol string) (models.SymbolState, error) {
	return g.store.GetState(symbol)
}

func (g *Generator) Symbols() []string { return g.store.Symbols() }

// GenerateNextPrice advances symbol by one tick.
func (g *Generator) GenerateNextPrice(symbol string) (models.Tick, error) {
	var tick models.Tick
	err := g.store.with(symbol, func(e *entry) error {
		tick = e.step(g.store.now())
		return nil
	})
	return tick, err
}

func (e *entry) step(now time.Time) models.Tick {
	cfg := e.cfg
	st := &e.state
	lr := longRunVariance(cfg)

	st.ConditionalVariance = nextVariance(cfg, st.ConditionalVariance, st.LastSquaredReturn)
	st.Wave = advanceWave(st.Wave, cfg, e.rng)

	prev := st.CurrentPrice
	scale := cfg.BaseVolatility * cfg.VolatilityMultiplier

	shock := e.rng.NormFloat64() * math.Sqrt(st.ConditionalVariance/lr) * scale * prev
	target := st.ReferencePrice + cfg.PriceOffsetPips*cfg.PipSize
	reversion := cfg.MeanReversionStrength * (target - prev)
	momentum := cfg.MomentumFactor * float64(effectiveDirection(st.Wave)) * cfg.WaveStep() * cfg.PipSize

	next := e.clamp(prev + shock + reversion + momentum)

	// squared return in units of the baseline shock, scaled to variance units
	st.LastSquaredReturn = 0
	if scale > 0 && prev > 0 {
		u := (next - prev) / prev / scale
		if sq := u * u * lr; finite(sq) {
			st.LastSquaredReturn = sq
		}
	}
	st.CurrentPrice = next
	st.LastUpdateTimestamp = now
	st.TicksGenerated++

	return models.Tick{Symbol: cfg.Symbol, Price: next, Timestamp: now.UnixMilli()}
}

// longRunVariance is the unconditional GARCH(1,1) variance omega/(1-alpha-beta).
func longRunVariance(cfg models.SymbolConfig) float64 {
	return cfg.GarchOmega / (1 - cfg.GarchAlpha - cfg.GarchBeta)
}

// nextVariance applies the GARCH(1,1) recursion; the result is always finite,
// non-negative and at most varianceCap times the long-run level.
func nextVariance(cfg models.SymbolConfig, prev, lastSq float64) float64 {
	lr := longRunVariance(cfg)
	v := cfg.GarchOmega + cfg.GarchAlpha*lastSq + cfg.GarchBeta*prev
	switch {
	case !finite(v):
		return lr
	case v < 0:
		return 0
	case v > varianceCap*lr:
		return varianceCap * lr
	}
	return v
}

// Config returns the normalized config of symbol.
func (g *Generator) Config(symbol string) (models.SymbolConfig, error) {
	return g.store.Config(symbol)
}
