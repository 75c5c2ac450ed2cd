package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharpeRatio(t *testing.T) {
	assert.InDelta(t, 0.5, SharpeRatio(0.12, 0.02, 0.20), 1e-12)
	assert.InDelta(t, -0.25, SharpeRatio(0.02, 0.07, 0.20), 1e-12)
	assert.Equal(t, 0.0, SharpeRatio(0.12, 0.02, 0))
}

func TestAnnualizedReturn(t *testing.T) {
	// A constant daily log return compounds to exp(r*252)-1.
	daily := math.Log(1.001)
	returns := []float64{daily, daily, daily}
	assert.InDelta(t, math.Exp(daily*252)-1, AnnualizedReturn(returns, 252), 1e-12)

	assert.Equal(t, 0.0, AnnualizedReturn(nil, 252))
	assert.Equal(t, 0.0, AnnualizedReturn([]float64{0, 0, 0}, 252))
}

func TestSortinoRatio(t *testing.T) {
	// Mixed returns with downside observations yield a finite ratio.
	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	sortino := SortinoRatio(returns, 0.02, 0, 252)
	assert.False(t, math.IsNaN(sortino))
	assert.False(t, math.IsInf(sortino, 0))

	// All-positive returns have no downside deviation.
	assert.Equal(t, 0.0, SortinoRatio([]float64{0.01, 0.02, 0.03}, 0.02, 0, 252))
	assert.Equal(t, 0.0, SortinoRatio([]float64{0.01}, 0.02, 0, 252))
}
