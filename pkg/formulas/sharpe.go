package formulas

import "math"

// SharpeRatio is the risk-adjusted excess return:
//
//	Sharpe = (Annualized Return - Risk-free Rate) / Annualized Volatility
//
// Returns 0 when volatility is 0, matching the rest of the engine's
// degenerate-input conventions.
func SharpeRatio(annualizedReturn, riskFreeRate, annualizedVolatility float64) float64 {
	if annualizedVolatility == 0 {
		return 0
	}
	return (annualizedReturn - riskFreeRate) / annualizedVolatility
}

// AnnualizedReturn compounds the mean of periodic log returns to a yearly
// figure. Log returns add across periods, so the mean scales linearly before
// conversion back to a simple return.
func AnnualizedReturn(logReturns []float64, periodsPerYear int) float64 {
	if len(logReturns) == 0 {
		return 0
	}
	if periodsPerYear <= 0 {
		periodsPerYear = TradingDaysPerYear
	}
	return math.Exp(Mean(logReturns)*float64(periodsPerYear)) - 1
}

// SortinoRatio divides excess return by downside deviation only, ignoring
// upside volatility. Returns 0 when there are no observations below target.
func SortinoRatio(returns []float64, riskFreeRate, targetReturn float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	if periodsPerYear <= 0 {
		periodsPerYear = TradingDaysPerYear
	}

	periodicMAR := targetReturn / float64(periodsPerYear)

	var downsideSquaredSum float64
	downsideCount := 0
	for _, ret := range returns {
		if ret < periodicMAR {
			deviation := ret - periodicMAR
			downsideSquaredSum += deviation * deviation
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0
	}

	downsideDeviation := math.Sqrt(downsideSquaredSum / float64(downsideCount))
	if downsideDeviation == 0 {
		return 0
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sortino := (Mean(returns) - periodicRiskFree) / downsideDeviation
	return sortino * math.Sqrt(float64(periodsPerYear))
}
