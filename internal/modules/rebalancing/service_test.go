package rebalancing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-advisor/internal/domain"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
	"github.com/aristath/portfolio-advisor/pkg/logger"
)

type fakePositions struct {
	view  portfolio.PortfolioView
	calls *int
}

func (f fakePositions) GetPositions(_ context.Context, _ string) (portfolio.PortfolioView, error) {
	if f.calls != nil {
		*f.calls++
	}
	return f.view, nil
}

type fakeHistory struct {
	series map[string][]domain.PricePoint
}

func (f fakeHistory) GetHistoricalPrices(_ context.Context, ticker, _ string) ([]domain.PricePoint, error) {
	return f.series[ticker], nil
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// marketPosition builds a position decorated the way the portfolio service
// decorates it: market value, allocation percentages and rebalancing delta.
func marketPosition(ticker string, price, marketValue, currentPct, targetPct, delta float64) domain.Position {
	return domain.Position{
		Ticker:           ticker,
		TotalShares:      dec(1),
		CostBasis:        dec(marketValue),
		CurrentPrice:     decPtr(price),
		MarketValue:      decPtr(marketValue),
		CurrentAlloc:     decPtr(currentPct),
		TargetAlloc:      decPtr(targetPct),
		RebalancingDelta: decPtr(delta),
	}
}

func risingSeries(n int) []domain.PricePoint {
	points := make([]domain.PricePoint, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		points[i] = domain.PricePoint{
			Date:  base.AddDate(0, 0, i),
			Close: decimal.NewFromInt(int64(i + 1)),
		}
	}
	return points
}

func newTestService(view portfolio.PortfolioView, history fakeHistory) *Service {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	return NewService(fakePositions{view: view}, history, nil, DefaultOptions(), log)
}

func TestCalculateActions_SignsAndTotals(t *testing.T) {
	view := portfolio.PortfolioView{
		Positions: []domain.Position{
			marketPosition("AAA", 100, 2000, 20, 30, 1000),  // underweight, buy 1000
			marketPosition("BBB", 50, 5000, 50, 40, -1000),  // overweight, sell 1000
			marketPosition("CCC", 10, 3000, 30, 30, 0),      // on target
			{Ticker: "DDD", TotalShares: dec(5), CostBasis: dec(100)}, // no market data
		},
		TotalValue: dec(10000),
	}

	svc := newTestService(view, fakeHistory{})
	resp, err := svc.CalculateActions(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, resp.Actions, 3)
	assert.True(t, resp.TotalBuy.Equal(dec(1000)), "total buy %s", resp.TotalBuy)
	assert.True(t, resp.TotalSell.Equal(dec(1000)), "total sell %s", resp.TotalSell)
	assert.True(t, resp.NetCashFlow.IsZero(), "net cash flow %s", resp.NetCashFlow)

	byTicker := make(map[string]Action)
	for _, a := range resp.Actions {
		byTicker[a.Ticker] = a
	}
	assert.Equal(t, ActionBuy, byTicker["AAA"].Action)
	assert.True(t, byTicker["AAA"].Deviation.Equal(dec(-10)))
	assert.Equal(t, ActionSell, byTicker["BBB"].Action)
	assert.True(t, byTicker["BBB"].Amount.Equal(dec(1000)))
}

func TestSmartRebalance_DistributesProportionallyToGaps(t *testing.T) {
	view := portfolio.PortfolioView{
		Positions: []domain.Position{
			marketPosition("AAA", 100, 1000, 10, 30, 2000), // gap 20
			marketPosition("BBB", 50, 2000, 20, 30, 1000),  // gap 10
			marketPosition("CCC", 10, 7000, 70, 40, -3000), // overweight, excluded
		},
		TotalValue: dec(10000),
	}

	svc := newTestService(view, fakeHistory{})
	resp, err := svc.SmartRebalance(context.Background(), "u1", dec(3000), 0)
	require.NoError(t, err)

	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "AAA", resp.Recommendations[0].Ticker)
	assert.True(t, resp.Recommendations[0].RecommendedAmount.Equal(dec(2000)),
		"AAA amount %s", resp.Recommendations[0].RecommendedAmount)
	assert.Equal(t, "BBB", resp.Recommendations[1].Ticker)
	assert.True(t, resp.Recommendations[1].RecommendedAmount.Equal(dec(1000)),
		"BBB amount %s", resp.Recommendations[1].RecommendedAmount)
	assert.True(t, resp.TotalAllocated.Equal(dec(3000)))
}

func TestSmartRebalance_CapsToHighestGaps(t *testing.T) {
	view := portfolio.PortfolioView{
		Positions: []domain.Position{
			marketPosition("AAA", 1, 1000, 10, 30, 2000), // gap 20
			marketPosition("BBB", 1, 2000, 20, 30, 1000), // gap 10
			marketPosition("CCC", 1, 2500, 25, 30, 500),  // gap 5
		},
		TotalValue: dec(10000),
	}

	svc := newTestService(view, fakeHistory{})
	resp, err := svc.SmartRebalance(context.Background(), "u1", dec(3000), 2)
	require.NoError(t, err)

	// Only the two largest gaps are kept, and the whole amount is spread
	// over them: 20/(20+10) and 10/(20+10).
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "AAA", resp.Recommendations[0].Ticker)
	assert.True(t, resp.Recommendations[0].RecommendedAmount.Equal(dec(2000)))
	assert.Equal(t, "BBB", resp.Recommendations[1].Ticker)
	assert.True(t, resp.Recommendations[1].RecommendedAmount.Equal(dec(1000)))
}

func TestSmartRebalance_NoUnderweightPositions(t *testing.T) {
	view := portfolio.PortfolioView{
		Positions: []domain.Position{
			marketPosition("AAA", 1, 5000, 50, 40, -1000),
		},
		TotalValue: dec(10000),
	}

	svc := newTestService(view, fakeHistory{})
	resp, err := svc.SmartRebalance(context.Background(), "u1", dec(3000), 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Recommendations)
	assert.True(t, resp.TotalAllocated.IsZero())
}

func TestSmartRebalance_RejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(portfolio.PortfolioView{}, fakeHistory{})
	_, err := svc.SmartRebalance(context.Background(), "u1", decimal.Zero, 0)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestTimedRebalance_GatesByPercentileAndDropsNoise(t *testing.T) {
	view := portfolio.PortfolioView{
		Positions: []domain.Position{
			// Price 10 of a 1..100 range: 10th percentile, cheap buy.
			marketPosition("CHEAP", 10, 2000, 20, 40, 2000),
			// Price 95: 95th percentile, expensive sell.
			marketPosition("RICH", 95, 4000, 40, 20, -2000),
			// Mid-range buy: kept but not emphasized.
			marketPosition("MID", 50, 2000, 20, 30, 1000),
			// Below the noise threshold: dropped.
			marketPosition("DUST", 50, 1000, 10, 10.4, 40),
		},
		TotalValue: dec(10000),
	}

	history := fakeHistory{series: map[string][]domain.PricePoint{
		"CHEAP": risingSeries(100),
		"RICH":  risingSeries(100),
		"MID":   risingSeries(100),
		"DUST":  risingSeries(100),
	}}

	svc := newTestService(view, history)
	resp, err := svc.TimedRebalance(context.Background(), "u1")
	require.NoError(t, err)

	byTicker := make(map[string]TimedAction)
	for _, a := range resp.Actions {
		byTicker[a.Ticker] = a
	}

	require.Len(t, resp.Actions, 3)
	assert.NotContains(t, byTicker, "DUST")

	assert.Equal(t, SignalCheap, byTicker["CHEAP"].Signal)
	assert.True(t, byTicker["CHEAP"].Emphasized)
	assert.True(t, byTicker["CHEAP"].PricePercentile.Equal(dec(10)),
		"percentile %s", byTicker["CHEAP"].PricePercentile)

	assert.Equal(t, SignalExpensive, byTicker["RICH"].Signal)
	assert.True(t, byTicker["RICH"].Emphasized)

	assert.Equal(t, SignalNeutral, byTicker["MID"].Signal)
	assert.False(t, byTicker["MID"].Emphasized)

	// Default prioritizer puts emphasized actions first.
	require.Len(t, resp.Prioritized, 3)
	assert.True(t, resp.Prioritized[0].Emphasized)
	assert.Equal(t, 1, resp.Prioritized[0].Priority)
	assert.Equal(t, "MID", resp.Prioritized[2].Ticker)
}

func TestTimedRebalance_LoadsPositionsOnce(t *testing.T) {
	view := portfolio.PortfolioView{
		Positions: []domain.Position{
			marketPosition("AAA", 10, 2000, 20, 40, 2000),
		},
		TotalValue: dec(10000),
	}
	history := fakeHistory{series: map[string][]domain.PricePoint{
		"AAA": risingSeries(100),
	}}

	calls := 0
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	svc := NewService(fakePositions{view: view, calls: &calls}, history, nil, DefaultOptions(), log)

	resp, err := svc.TimedRebalance(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, resp.Actions, 1)

	// The position view feeds both the standard actions and the current
	// prices; it must not be fetched twice per request.
	assert.Equal(t, 1, calls)
}
