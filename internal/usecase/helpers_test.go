package usecase

import (
	"testing"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/services/otc"

	"github.com/stretchr/testify/require"
)

func eurUSD() models.SymbolConfig {
	return models.SymbolConfig{
		Symbol:                "EUR/USD-OTC",
		BaseSymbol:            "OANDA:EUR_USD",
		PipSize:               0.00001,
		BaseVolatility:        0.00002,
		MeanReversionStrength: 0.02,
		MaxDeviationPercent:   0.5,
		MomentumFactor:        0.3,
		GarchAlpha:            0.08,
		GarchBeta:             0.9,
		GarchOmega:            0.02,
	}
}

func gbpUSD() models.SymbolConfig {
	c := eurUSD()
	c.Symbol = "GBP/USD-OTC"
	c.BaseSymbol = "OANDA:GBP_USD"
	return c
}

func newGenerator(t *testing.T, cfgs ...models.SymbolConfig) *otc.Generator {
	t.Helper()
	g := otc.NewGenerator(otc.NewStore(otc.WithSources(otc.SeededSources(7))))
	for _, c := range cfgs {
		require.NoError(t, g.InitializeSymbol(c, 1.1))
	}
	return g
}
