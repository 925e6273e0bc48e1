package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"OTCFeed/internal/domain/models"
	drepo "OTCFeed/internal/domain/repository"
	"OTCFeed/internal/services/otc"
)

type priceUpdater interface {
	UpdateRealPrice(symbol string, price float64) error
}

// ReferenceUpdater fans a real-market quote out to every OTC symbol whose
// base symbol it matches.
type ReferenceUpdater struct {
	gen     priceUpdater
	metrics drepo.Metrics

	mu     sync.RWMutex
	byBase map[string][]string
}

func NewReferenceUpdater(gen priceUpdater, metrics drepo.Metrics, cfgs ...models.SymbolConfig) *ReferenceUpdater {
	u := &ReferenceUpdater{gen: gen, metrics: metrics, byBase: make(map[string][]string)}
	for _, c := range cfgs {
		u.Track(c)
	}
	return u
}

// Track maps cfg.BaseSymbol to cfg.Symbol. Configs without a base symbol
// are ignored.
func (u *ReferenceUpdater) Track(cfg models.SymbolConfig) {
	if cfg.BaseSymbol == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.byBase[cfg.BaseSymbol] {
		if s == cfg.Symbol {
			return
		}
	}
	u.byBase[cfg.BaseSymbol] = append(u.byBase[cfg.BaseSymbol], cfg.Symbol)
}

// BaseSymbols returns the tracked base symbols, sorted.
func (u *ReferenceUpdater) BaseSymbols() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]string, 0, len(u.byBase))
	for b := range u.byBase {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Process applies q to every tracked OTC symbol. Quotes for untracked base
// symbols are counted and dropped.
func (u *ReferenceUpdater) Process(_ context.Context, q *models.ReferenceQuote) error {
	u.mu.RLock()
	targets := append([]string(nil), u.byBase[q.Symbol]...)
	u.mu.RUnlock()

	if len(targets) == 0 {
		u.metrics.RecordError("reference_untracked")
		return nil
	}

	var errs []error
	for _, sym := range targets {
		if err := u.gen.UpdateRealPrice(sym, q.Price); err != nil {
			if errors.Is(err, otc.ErrUnknownSymbol) {
				u.metrics.RecordError("unknown_symbol")
				continue
			}
			u.metrics.RecordError("reference_update")
			errs = append(errs, err)
			continue
		}
		u.metrics.RecordReferencePrice(sym, q.Price)
	}
	return errors.Join(errs...)
}
