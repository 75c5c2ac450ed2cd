package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the conventional annualization factor for daily series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the population variance (divide by N, not N-1).
// gonum's stat.Variance applies the Bessel correction, so the result is
// rescaled by (N-1)/N.
func Variance(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	return stat.Variance(data, nil) * float64(n-1) / float64(n)
}

// StdDev calculates the population standard deviation.
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// Covariance calculates the population covariance between two equal-length
// series. Mismatched or empty series yield 0.
func Covariance(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil) * float64(n-1) / float64(n)
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// LogReturns converts a chronologically ordered price series into log
// returns: r_t = ln(P_t / P_{t-1}). Non-positive prices break the chain and
// produce no return for that step.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
	return returns
}

// SimpleReturns converts prices to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// AnnualizeVolatility scales a daily volatility by sqrt(trading days).
func AnnualizeVolatility(dailyVol float64, tradingDays int) float64 {
	if tradingDays <= 0 {
		tradingDays = TradingDaysPerYear
	}
	return dailyVol * math.Sqrt(float64(tradingDays))
}

// Beta measures an asset's volatility relative to a benchmark:
//
//	Beta = Cov(asset, benchmark) / Var(benchmark)
//
// Returns 0 when the benchmark variance is 0 or the series do not align.
func Beta(assetReturns, benchmarkReturns []float64) float64 {
	benchVar := Variance(benchmarkReturns)
	if benchVar == 0 {
		return 0
	}
	return Covariance(assetReturns, benchmarkReturns) / benchVar
}

// Percentile returns where value sits within data as the fraction of
// observations at or below it, in [0, 1]. An empty series yields 0.
func Percentile(data []float64, value float64) float64 {
	if len(data) == 0 {
		return 0
	}

	below := 0
	for _, v := range data {
		if v <= value {
			below++
		}
	}
	return float64(below) / float64(len(data))
}
