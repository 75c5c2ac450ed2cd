package formulas

// MaxDrawdown calculates the maximum peak-to-trough decline of a price
// series:
//
//	Drawdown = (Peak - Current) / Peak
//
// Returned as a positive fraction (0.25 = 25% loss from peak), or nil when
// there are fewer than two observations.
func MaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}

		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CurrentDrawdown returns the decline of the last price from the running
// peak, as a positive fraction. Nil when the series is too short.
func CurrentDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}
	}

	if peak <= 0 {
		return nil
	}

	dd := (peak - prices[len(prices)-1]) / peak
	return &dd
}
