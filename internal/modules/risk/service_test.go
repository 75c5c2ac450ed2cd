package risk

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-advisor/internal/domain"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
)

type fakePositions struct {
	view portfolio.PortfolioView
	err  error
}

func (f *fakePositions) GetPositions(_ context.Context, _ string) (portfolio.PortfolioView, error) {
	return f.view, f.err
}

type fakeHistory struct {
	series map[string][]domain.PricePoint
}

func (f *fakeHistory) GetHistoricalPrices(_ context.Context, ticker, _ string) ([]domain.PricePoint, error) {
	points, ok := f.series[ticker]
	if !ok {
		return nil, fmt.Errorf("no history for %s", ticker)
	}
	return points, nil
}

func pricePoints(start time.Time, closes ...float64) []domain.PricePoint {
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Close: decimal.NewFromFloat(c),
		}
	}
	return points
}

func holding(ticker string, shares int64) domain.Position {
	return domain.Position{
		Ticker:      ticker,
		TotalShares: decimal.NewFromInt(shares),
	}
}

func newTestService(positions *fakePositions, history *fakeHistory, benchmark string) *Service {
	cfg := Config{
		BenchmarkTicker: benchmark,
		RiskFreeRate:    decimal.NewFromFloat(0.02),
	}
	return NewService(positions, history, cfg, zerolog.Nop())
}

func TestComputeMetrics_EmptyPortfolio(t *testing.T) {
	svc := newTestService(&fakePositions{}, &fakeHistory{}, "SPY")

	metrics, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.NoError(t, err)

	assert.Equal(t, "1Y", metrics.Period)
	assert.Equal(t, "SPY", metrics.BenchmarkTicker)
	assert.True(t, metrics.AnnualizedVolatility.IsZero())
	assert.True(t, metrics.Beta.IsZero())
	assert.True(t, metrics.SharpeRatio.IsZero())
	assert.True(t, metrics.AnnualizedReturn.IsZero())
}

func TestComputeMetrics_ConstantPricesHaveZeroVolatility(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	positions := &fakePositions{view: portfolio.PortfolioView{
		Positions: []domain.Position{holding("AAPL", 10)},
	}}
	history := &fakeHistory{series: map[string][]domain.PricePoint{
		"AAPL": pricePoints(start, 100, 100, 100, 100, 100),
		"SPY":  pricePoints(start, 400, 401, 402, 401, 403),
	}}

	svc := newTestService(positions, history, "SPY")

	metrics, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.NoError(t, err)

	assert.True(t, metrics.AnnualizedVolatility.IsZero())
	// Zero volatility makes the Sharpe ratio undefined; it collapses to 0.
	assert.True(t, metrics.SharpeRatio.IsZero())
	assert.True(t, metrics.AnnualizedReturn.IsZero())
	assert.True(t, metrics.MaxDrawdown.IsZero())
}

func TestComputeMetrics_BetaAgainstIdenticalBenchmarkIsOne(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := pricePoints(start, 100, 102, 101, 104, 103, 106)

	positions := &fakePositions{view: portfolio.PortfolioView{
		Positions: []domain.Position{holding("VTI", 1)},
	}}
	history := &fakeHistory{series: map[string][]domain.PricePoint{
		"VTI": series,
		"SPY": series,
	}}

	svc := newTestService(positions, history, "SPY")

	metrics, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, metrics.Beta.InexactFloat64(), 1e-9)
	assert.True(t, metrics.AnnualizedVolatility.IsPositive())
}

func TestComputeMetrics_TwoHoldingsUseCommonDatesOnly(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	positions := &fakePositions{view: portfolio.PortfolioView{
		Positions: []domain.Position{holding("AAPL", 2), holding("MSFT", 1)},
	}}
	// MSFT is missing the last two AAPL dates; the portfolio series must
	// cover the four overlapping days only.
	history := &fakeHistory{series: map[string][]domain.PricePoint{
		"AAPL": pricePoints(start, 100, 101, 102, 103, 104, 105),
		"MSFT": pricePoints(start, 200, 202, 204, 206),
		"SPY":  pricePoints(start, 400, 401, 402, 403, 404, 405),
	}}

	svc := newTestService(positions, history, "SPY")

	metrics, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.NoError(t, err)

	// Rising portfolio over the overlap: positive return, positive vol.
	assert.True(t, metrics.AnnualizedReturn.IsPositive())
	assert.True(t, metrics.AnnualizedVolatility.IsPositive())
}

func TestComputeMetrics_MissingBenchmarkDegradesToZeroBeta(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	positions := &fakePositions{view: portfolio.PortfolioView{
		Positions: []domain.Position{holding("AAPL", 1)},
	}}
	history := &fakeHistory{series: map[string][]domain.PricePoint{
		"AAPL": pricePoints(start, 100, 102, 99, 103, 101),
	}}

	svc := newTestService(positions, history, "SPY")

	metrics, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.NoError(t, err)

	assert.True(t, metrics.Beta.IsZero())
	assert.True(t, metrics.AnnualizedVolatility.IsPositive())
}

func TestComputeMetrics_HoldingHistoryErrorPropagates(t *testing.T) {
	positions := &fakePositions{view: portfolio.PortfolioView{
		Positions: []domain.Position{holding("GONE", 1)},
	}}

	svc := newTestService(positions, &fakeHistory{}, "SPY")

	_, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GONE")
}

func TestComputeMetrics_SharpeUsesRiskFreeRate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := pricePoints(start, 100, 101, 102, 103, 104, 105, 106, 107)

	positions := &fakePositions{view: portfolio.PortfolioView{
		Positions: []domain.Position{holding("VTI", 1)},
	}}
	history := &fakeHistory{series: map[string][]domain.PricePoint{
		"VTI": series,
		"SPY": series,
	}}

	svc := newTestService(positions, history, "SPY")

	metrics, err := svc.ComputeMetrics(context.Background(), "default", "1Y")
	require.NoError(t, err)

	// Steadily rising daily series annualizes into a large positive excess
	// return over the 2% risk-free rate.
	require.False(t, metrics.AnnualizedVolatility.IsZero())
	expected := (metrics.AnnualizedReturn.InexactFloat64() - 0.02) /
		metrics.AnnualizedVolatility.InexactFloat64()
	assert.InDelta(t, expected, metrics.SharpeRatio.InexactFloat64(), 1e-4)
	assert.False(t, math.IsNaN(metrics.SharpeRatio.InexactFloat64()))
}

func TestValidatePeriod(t *testing.T) {
	require.NoError(t, ValidatePeriod("1Y"))
	require.NoError(t, ValidatePeriod("1M"))

	err := ValidatePeriod("2Y")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}
