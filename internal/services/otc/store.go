package otc

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"OTCFeed/internal/domain/models"
)

// entry is one symbol's state; mu serializes ticks and reference updates.
type entry struct {
	mu    sync.Mutex
	cfg   models.SymbolConfig
	state models.SymbolState
	rng   RandomSource
}

// Store holds exactly one SymbolState per registered symbol.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	sources SourceFactory
	now     func() time.Time
}

type StoreOption func(*Store)

// WithSources sets the per-symbol randomness factory.
func WithSources(f SourceFactory) StoreOption {
	return func(s *Store) {
		if f != nil {
			s.sources = f
		}
	}
}

// WithClock overrides the time source used for state and tick timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		sources: TimeSeededSources(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeSymbol creates state for cfg.Symbol. It fails with
// ErrAlreadyInitialized if the symbol exists.
func (s *Store) InitializeSymbol(cfg models.SymbolConfig, startPrice float64) error {
	return s.put(cfg, startPrice, false)
}

// ResetSymbol creates or replaces the state for cfg.Symbol.
func (s *Store) ResetSymbol(cfg models.SymbolConfig, startPrice float64) error {
	return s.put(cfg, startPrice, true)
}

func (s *Store) put(cfg models.SymbolConfig, startPrice float64, replace bool) error {
	cfg, err := NormalizeConfig(cfg)
	if err != nil {
		return err
	}
	if !validPrice(startPrice) {
		return fmt.Errorf("%w: start price %v", ErrInvalidConfig, startPrice)
	}
	if lo, hi := band(startPrice, cfg); lo > hi {
		return fmt.Errorf("%w: no %g pip inside %g%% of %v", ErrInvalidConfig, cfg.PipSize, cfg.MaxDeviationPercent, startPrice)
	}

	rng := s.sources(cfg.Symbol)
	e := &entry{cfg: cfg, rng: rng}
	e.state = models.SymbolState{
		Symbol:              cfg.Symbol,
		ReferencePrice:      startPrice,
		ConditionalVariance: longRunVariance(cfg),
		Wave:                newPhase(rng, cfg, false, randomDirection(rng)),
		LastUpdateTimestamp: s.now(),
	}
	e.state.CurrentPrice = e.clamp(startPrice)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[cfg.Symbol]; ok && !replace {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, cfg.Symbol)
	}
	s.entries[cfg.Symbol] = e
	return nil
}

// UpdateReferencePrice moves the mean-reversion anchor. The current price is
// pulled back inside the new deviation band immediately. A price whose band
// holds no pip multiple is rejected and the state is left untouched.
func (s *Store) UpdateReferencePrice(symbol string, price float64) error {
	if !validPrice(price) {
		return fmt.Errorf("%w: %s reference %v", ErrInvalidPrice, symbol, price)
	}
	return s.with(symbol, func(e *entry) error {
		if lo, hi := band(price, e.cfg); lo > hi {
			return fmt.Errorf("%w: %s reference %v has no pip inside the deviation band", ErrInvalidPrice, symbol, price)
		}
		e.state.ReferencePrice = price
		e.state.CurrentPrice = e.clamp(e.state.CurrentPrice)
		e.state.LastUpdateTimestamp = s.now()
		return nil
	})
}

// GetState returns a copy of the symbol's state.
func (s *Store) GetState(symbol string) (models.SymbolState, error) {
	var st models.SymbolState
	err := s.with(symbol, func(e *entry) error {
		st = e.state
		return nil
	})
	return st, err
}

// Config returns the normalized config of a symbol.
func (s *Store) Config(symbol string) (models.SymbolConfig, error) {
	var cfg models.SymbolConfig
	err := s.with(symbol, func(e *entry) error {
		cfg = e.cfg
		return nil
	})
	return cfg, err
}

// Symbols returns registered symbols in lexical order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.entries))
	for sym := range s.entries {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Snapshot returns copies of every symbol's state, ordered by symbol.
func (s *Store) Snapshot() []models.SymbolState {
	syms := s.Symbols()
	out := make([]models.SymbolState, 0, len(syms))
	for _, sym := range syms {
		if st, err := s.GetState(sym); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func (s *Store) with(symbol string, fn func(*entry) error) error {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

// band returns the pip-quantized deviation band around ref. Bounds are
// rounded inward, so lo > hi when no pip multiple fits.
func band(ref float64, cfg models.SymbolConfig) (lo, hi float64) {
	d := cfg.MaxDeviationPercent / 100
	return quantizeCeil(ref*(1-d), cfg.PipSize), quantizeFloor(ref*(1+d), cfg.PipSize)
}

// clamp quantizes price to the pip grid and keeps it inside the band. The
// reference price always has a non-empty band here; put and
// UpdateReferencePrice refuse anything else.
func (e *entry) clamp(price float64) float64 {
	if !finite(price) {
		price = e.state.ReferencePrice
	}
	lo, hi := band(e.state.ReferencePrice, e.cfg)
	p := quantize(price, e.cfg.PipSize)
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
