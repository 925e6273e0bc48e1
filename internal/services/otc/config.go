package otc

import (
	"fmt"
	"math"

	"OTCFeed/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeConfig fills default wave tuning and rejects configs that would
// produce unstable ticks.
func NormalizeConfig(cfg models.SymbolConfig) (models.SymbolConfig, error) {
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: defaults: %v", ErrInvalidConfig, err)
	}
	step := cfg.WaveStep()
	cfg.WaveStepPips = &step
	for name, v := range map[string]float64{
		"pip_size":              cfg.PipSize,
		"base_volatility":       cfg.BaseVolatility,
		"garch_omega":           cfg.GarchOmega,
		"price_offset":          cfg.PriceOffsetPips,
		"wave_step_pips":        cfg.WaveStep(),
		"volatility_multiplier": cfg.VolatilityMultiplier,
	} {
		if !finite(v) {
			return cfg, fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, name)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.GarchAlpha+cfg.GarchBeta >= 1 {
		return cfg, fmt.Errorf("%w: garch_alpha+garch_beta must be < 1, got %g", ErrInvalidConfig, cfg.GarchAlpha+cfg.GarchBeta)
	}
	return cfg, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func validPrice(p float64) bool { return finite(p) && p > 0 }
