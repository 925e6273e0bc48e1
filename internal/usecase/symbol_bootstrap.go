package usecase

import (
	"context"
	"errors"
	"fmt"

	"OTCFeed/internal/domain/models"
	drepo "OTCFeed/internal/domain/repository"
	"OTCFeed/internal/services/otc"
	applogger "OTCFeed/pkg/logger"
)

type symbolInitializer interface {
	InitializeSymbol(cfg models.SymbolConfig, startPrice float64) error
}

// SymbolBootstrap initializes the configured markets, resuming each one
// from its last cached tick when there is one.
type SymbolBootstrap struct {
	gen     symbolInitializer
	cache   drepo.TickCache
	markets []models.MarketConfig
	l       *applogger.Logger
}

func NewSymbolBootstrap(gen symbolInitializer, cache drepo.TickCache, markets []models.MarketConfig, l *applogger.Logger) *SymbolBootstrap {
	if l == nil {
		l = applogger.Nop()
	}
	return &SymbolBootstrap{gen: gen, cache: cache, markets: markets, l: l}
}

// Run initializes every market. Markets already initialized are left alone.
func (b *SymbolBootstrap) Run(ctx context.Context) error {
	last := b.lastTicks(ctx)
	for _, m := range b.markets {
		start := m.StartPrice
		if t, ok := last[m.Symbol]; ok && t.Price > 0 {
			start = t.Price
		}
		err := b.gen.InitializeSymbol(m.SymbolConfig, start)
		switch {
		case errors.Is(err, otc.ErrAlreadyInitialized):
			continue
		case err != nil:
			return fmt.Errorf("initialize %s: %w", m.Symbol, err)
		}
		b.l.Info("symbol initialized",
			applogger.String("symbol", m.Symbol),
			applogger.Float64("start_price", start),
		)
	}
	return nil
}

func (b *SymbolBootstrap) lastTicks(ctx context.Context) map[string]models.Tick {
	if b.cache == nil || len(b.markets) == 0 {
		return nil
	}
	symbols := make([]string, len(b.markets))
	for i, m := range b.markets {
		symbols[i] = m.Symbol
	}
	last, err := b.cache.LastMany(ctx, symbols)
	if err != nil {
		b.l.Warn("restore last ticks failed", applogger.Int("symbols", len(symbols)), applogger.Error(err))
		return nil
	}
	return last
}
