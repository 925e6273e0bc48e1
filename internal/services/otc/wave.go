package otc

import "OTCFeed/internal/domain/models"

// Wave overlay: TREND -> PULLBACK -> TREND. A pullback moves against the
// trend direction; every new trend draws a fresh direction.

func randomDirection(rng RandomSource) models.Direction {
	if rng.Float64() < 0.5 {
		return models.DirectionDown
	}
	return models.DirectionUp
}

func newPhase(rng RandomSource, cfg models.SymbolConfig, pullback bool, dir models.Direction) models.WaveState {
	lo, hi := cfg.TrendMinTicks, cfg.TrendMaxTicks
	if pullback {
		lo, hi = cfg.PullbackMinTicks, cfg.PullbackMaxTicks
	}
	return models.WaveState{
		Direction:   dir,
		IsPullback:  pullback,
		PhaseLength: lo + rng.Intn(hi-lo+1),
	}
}

// advanceWave moves the wave one tick forward. After the call TicksInPhase is
// in [1, PhaseLength].
func advanceWave(w models.WaveState, cfg models.SymbolConfig, rng RandomSource) models.WaveState {
	switch {
	case w.PhaseLength <= 0:
		w = newPhase(rng, cfg, false, randomDirection(rng))
	case w.TicksInPhase >= w.PhaseLength && w.IsPullback:
		w = newPhase(rng, cfg, false, randomDirection(rng))
	case w.TicksInPhase >= w.PhaseLength:
		w = newPhase(rng, cfg, true, w.Direction)
	}
	w.TicksInPhase++
	return w
}

// effectiveDirection is the direction the overlay currently pushes price.
func effectiveDirection(w models.WaveState) models.Direction {
	if w.IsPullback {
		return -w.Direction
	}
	return w.Direction
}
