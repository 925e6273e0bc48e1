package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/services/analysis"
	"OTCFeed/internal/services/otc"
	"OTCFeed/pkg/config"
	"OTCFeed/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	symbol     string
	ticks      int
	interval   time.Duration
	seed       int64
	startPrice float64
	verbose    bool
)

// eurUSD is used when no config file is given.
var eurUSD = models.MarketConfig{
	SymbolConfig: models.SymbolConfig{
		Symbol:                "EUR/USD-OTC",
		BaseSymbol:            "OANDA:EUR_USD",
		MarketType:            models.MarketForex,
		PipSize:               0.00001,
		BaseVolatility:        0.00002,
		MeanReversionStrength: 0.02,
		MaxDeviationPercent:   0.5,
		MomentumFactor:        0.3,
		GarchAlpha:            0.08,
		GarchBeta:             0.9,
		GarchOmega:            0.02,
	},
	StartPrice: 1.19080,
}

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "otc-analyze",
		Short: "Run the OTC generator offline and summarize its price path",
		RunE:  run,
	}

	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file with markets (default: built-in EUR/USD-OTC)")
	f.StringVar(&symbol, "symbol", eurUSD.Symbol, "symbol to generate")
	f.IntVar(&ticks, "ticks", 1000, "number of ticks to generate")
	f.DurationVar(&interval, "interval", 0, "pause between ticks, 0 runs as fast as possible")
	f.Int64Var(&seed, "seed", 1, "random seed, 0 seeds from the clock")
	f.Float64Var(&startPrice, "start", 0, "override the start price")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every tick")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	market, err := resolveMarket()
	if err != nil {
		return err
	}
	if startPrice > 0 {
		market.StartPrice = startPrice
	}

	sources := otc.SeededSources(seed)
	if seed == 0 {
		sources = otc.TimeSeededSources()
	}
	gen := otc.NewGenerator(otc.NewStore(otc.WithSources(sources)))
	if err := gen.InitializeSymbol(market.SymbolConfig, market.StartPrice); err != nil {
		return fmt.Errorf("initialize %s: %w", market.Symbol, err)
	}

	opts := []analysis.Option{analysis.WithInterval(interval)}
	if verbose {
		opts = append(opts, analysis.WithLogger(logger.NewWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}, zerolog.DebugLevel)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := analysis.New(gen, opts...).Run(ctx, market.Symbol, ticks)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout())
}

func resolveMarket() (models.MarketConfig, error) {
	if cfgFile == "" {
		if symbol != eurUSD.Symbol {
			return models.MarketConfig{}, fmt.Errorf("symbol %s needs --config", symbol)
		}
		return eurUSD, nil
	}
	c, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return models.MarketConfig{}, err
	}
	m, ok := c.Market(symbol)
	if !ok {
		return models.MarketConfig{}, fmt.Errorf("symbol %s not in %s", symbol, cfgFile)
	}
	return m, nil
}
