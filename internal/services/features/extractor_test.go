package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeLogReturns(t *testing.T) {
	require.Nil(t, ComputeLogReturns([]float64{1}))

	rets := ComputeLogReturns([]float64{1, math.E, 0, 2})
	require.Len(t, rets, 3)
	require.InDelta(t, 1.0, rets[0], 1e-12)
	require.Equal(t, 0.0, rets[1])
	require.Equal(t, 0.0, rets[2])
}

func TestRealizedVolatility(t *testing.T) {
	require.Equal(t, 0.0, RealizedVolatility([]float64{0.1}, 5, 1))
	require.Equal(t, 0.0, RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 1))

	// sample stdev of {1,-1} is sqrt(2)
	require.InDelta(t, math.Sqrt(2), RealizedVolatility([]float64{5, 1, -1}, 2, 1), 1e-12)
}

func TestPeriodsPerYear(t *testing.T) {
	require.InDelta(t, 365*24*3600.0, PeriodsPerYear(0), 1e-6)
	require.InDelta(t, 365*24*60.0, PeriodsPerYear(time.Minute), 1e-6)
}
