package models

import "time"

// MarketType classifies the real market an OTC instrument tracks.
type MarketType string

const (
	MarketForex     MarketType = "FOREX"
	MarketCrypto    MarketType = "CRYPTO"
	MarketCommodity MarketType = "COMMODITY"
	MarketIndex     MarketType = "INDEX"
	MarketStock     MarketType = "STOCK"
)

// Direction of the wave overlay.
type Direction int

const (
	DirectionDown Direction = -1
	DirectionUp   Direction = 1
)

func (d Direction) String() string {
	if d == DirectionDown {
		return "DOWN"
	}
	return "UP"
}

// SymbolConfig is the immutable per-instrument generator configuration.
// Zero-valued tuning fields are filled from the default tags.
type SymbolConfig struct {
	Symbol                string     `yaml:"symbol" json:"symbol" validate:"required"`
	BaseSymbol            string     `yaml:"base_symbol" json:"base_symbol"`
	MarketType            MarketType `yaml:"market_type" json:"market_type" default:"FOREX" validate:"oneof=FOREX CRYPTO COMMODITY INDEX STOCK"`
	PipSize               float64    `yaml:"pip_size" json:"pip_size" validate:"gt=0"`
	BaseVolatility        float64    `yaml:"base_volatility" json:"base_volatility" validate:"gte=0"`
	VolatilityMultiplier  float64    `yaml:"volatility_multiplier" json:"volatility_multiplier" default:"1" validate:"gt=0"`
	MeanReversionStrength float64    `yaml:"mean_reversion_strength" json:"mean_reversion_strength" validate:"gte=0,lte=1"`
	MaxDeviationPercent   float64    `yaml:"max_deviation_percent" json:"max_deviation_percent" validate:"gt=0,lt=100"`
	PriceOffsetPips       float64    `yaml:"price_offset_pips" json:"price_offset_pips"`
	MomentumFactor        float64    `yaml:"momentum_factor" json:"momentum_factor" validate:"gte=0,lte=1"`
	GarchAlpha            float64    `yaml:"garch_alpha" json:"garch_alpha" validate:"gte=0,lt=1"`
	GarchBeta             float64    `yaml:"garch_beta" json:"garch_beta" validate:"gte=0,lt=1"`
	GarchOmega            float64    `yaml:"garch_omega" json:"garch_omega" validate:"gt=0"`

	// Wave overlay tuning, in ticks.
	TrendMinTicks    int `yaml:"trend_min_ticks" json:"trend_min_ticks" default:"20" validate:"gte=1"`
	TrendMaxTicks    int `yaml:"trend_max_ticks" json:"trend_max_ticks" default:"60" validate:"gtefield=TrendMinTicks"`
	PullbackMinTicks int `yaml:"pullback_min_ticks" json:"pullback_min_ticks" default:"5" validate:"gte=1"`
	PullbackMaxTicks int `yaml:"pullback_max_ticks" json:"pullback_max_ticks" default:"15" validate:"gtefield=PullbackMinTicks"`
	// nil means the default of one pip; an explicit 0 turns momentum off.
	WaveStepPips *float64 `yaml:"wave_step_pips" json:"wave_step_pips" default:"1" validate:"omitempty,gte=0"`
}

// WaveStep returns the momentum step in pips.
func (c SymbolConfig) WaveStep() float64 {
	if c.WaveStepPips == nil {
		return 1
	}
	return *c.WaveStepPips
}

// WaveState tracks the momentum overlay phase.
type WaveState struct {
	Direction    Direction `json:"direction"`
	IsPullback   bool      `json:"is_pullback"`
	TicksInPhase int       `json:"ticks_in_phase"`
	PhaseLength  int       `json:"phase_length"`
}

// SymbolState is the mutable simulation state of one symbol.
type SymbolState struct {
	Symbol              string    `json:"symbol"`
	CurrentPrice        float64   `json:"current_price"`
	ReferencePrice      float64   `json:"reference_price"`
	ConditionalVariance float64   `json:"conditional_variance"`
	LastSquaredReturn   float64   `json:"last_squared_return"`
	Wave                WaveState `json:"wave"`
	LastUpdateTimestamp time.Time `json:"last_update_timestamp"`
	TicksGenerated      uint64    `json:"ticks_generated"`
}

// MarketConfig is a configured OTC market: generator settings plus the price
// used when no previous tick is available.
type MarketConfig struct {
	SymbolConfig `yaml:",inline"`
	StartPrice   float64 `yaml:"start_price" json:"start_price"`
}
