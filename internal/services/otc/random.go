package otc

import (
	"hash/fnv"
	"math/rand"
	"sync/atomic"
	"time"
)

// RandomSource is the randomness a symbol's price path draws from.
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// SourceFactory returns an independent RandomSource for a symbol. Sources are
// only used under the symbol's lock, so they need not be goroutine-safe.
type SourceFactory func(symbol string) RandomSource

// SeededSources derives one deterministic stream per symbol from seed, so a
// symbol's ticks do not depend on how other symbols are scheduled.
func SeededSources(seed int64) SourceFactory {
	return func(symbol string) RandomSource {
		h := fnv.New64a()
		_, _ = h.Write([]byte(symbol))
		return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
	}
}

// TimeSeededSources is the production default.
func TimeSeededSources() SourceFactory {
	base := time.Now().UnixNano()
	var n atomic.Int64
	return func(symbol string) RandomSource {
		return SeededSources(base + n.Add(1))(symbol)
	}
}
