package portfolio

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func buy(date string, qty, price, fees float64) domain.Transaction {
	return domain.Transaction{
		Type:     domain.TransactionBuy,
		Date:     day(date),
		Quantity: decimal.NewFromFloat(qty),
		Price:    decimal.NewFromFloat(price),
		Fees:     decimal.NewFromFloat(fees),
	}
}

func sell(date string, qty, price, fees float64) domain.Transaction {
	return domain.Transaction{
		Type:     domain.TransactionSell,
		Date:     day(date),
		Quantity: decimal.NewFromFloat(qty),
		Price:    decimal.NewFromFloat(price),
		Fees:     decimal.NewFromFloat(fees),
	}
}

func split(date string, ratio float64) domain.Transaction {
	return domain.Transaction{
		Type:     domain.TransactionSplit,
		Date:     day(date),
		Quantity: decimal.NewFromFloat(ratio),
	}
}

func dividend(date string, perShare float64) domain.Transaction {
	return domain.Transaction{
		Type:     domain.TransactionDividend,
		Date:     day(date),
		Quantity: decimal.Zero,
		Price:    decimal.NewFromFloat(perShare),
	}
}

func TestCalculateCostBasis_BuysSplitsAndLaterBuy(t *testing.T) {
	// Buy 100@150 fee 5, buy 50@160 fee 3, 2-for-1 split, buy 20@75 fee 2.
	txs := []domain.Transaction{
		buy("2024-01-01", 100, 150, 5),
		buy("2024-02-01", 50, 160, 3),
		split("2024-03-01", 2),
		buy("2024-04-01", 20, 75, 2),
	}

	shares, costBasis := CalculateCostBasis(txs)

	assert.True(t, shares.Equal(decimal.NewFromInt(320)), "shares = %s", shares)
	assert.True(t, costBasis.Equal(decimal.NewFromInt(24510)), "costBasis = %s", costBasis)

	avg := CalculatePositionMetrics(shares, costBasis)
	expected := decimal.NewFromFloat(76.59375)
	assert.True(t, avg.Equal(expected), "avgPrice = %s", avg)
}

func TestCalculateCostBasis_SplitBeforeFirstBuyIsIgnored(t *testing.T) {
	txs := []domain.Transaction{
		split("2024-01-01", 2),
		buy("2024-02-01", 100, 150, 5),
	}

	shares, costBasis := CalculateCostBasis(txs)

	assert.True(t, shares.Equal(decimal.NewFromInt(100)), "shares = %s", shares)
	assert.True(t, costBasis.Equal(decimal.NewFromInt(15005)), "costBasis = %s", costBasis)
}

func TestCalculateCostBasis_ReverseSplit(t *testing.T) {
	txs := []domain.Transaction{
		buy("2024-01-01", 200, 50, 10),
		split("2024-02-01", 0.5),
	}

	shares, costBasis := CalculateCostBasis(txs)

	assert.True(t, shares.Equal(decimal.NewFromInt(100)), "shares = %s", shares)
	assert.True(t, costBasis.Equal(decimal.NewFromInt(10010)), "costBasis = %s", costBasis)

	avg := CalculatePositionMetrics(shares, costBasis)
	assert.True(t, avg.Equal(decimal.NewFromFloat(100.10)), "avgPrice = %s", avg)
}

func TestCalculateCostBasis_InputOrderDoesNotMatter(t *testing.T) {
	txs := []domain.Transaction{
		buy("2024-01-01", 100, 150, 5),
		buy("2024-02-01", 50, 160, 3),
		split("2024-03-01", 2),
		sell("2024-03-15", 40, 90, 1),
		buy("2024-04-01", 20, 75, 2),
		dividend("2024-05-01", 0.5),
	}

	wantShares, wantCost := CalculateCostBasis(txs)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]domain.Transaction, len(txs))
		copy(shuffled, txs)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		shares, cost := CalculateCostBasis(shuffled)
		require.True(t, shares.Equal(wantShares), "permutation %d: shares %s != %s", i, shares, wantShares)
		require.True(t, cost.Equal(wantCost), "permutation %d: cost %s != %s", i, cost, wantCost)
	}
}

func TestCalculateCostBasis_SplitAfterFullLiquidation(t *testing.T) {
	txs := []domain.Transaction{
		buy("2024-01-01", 100, 10, 0),
		sell("2024-02-01", 100, 12, 0),
		split("2024-03-01", 2),
	}

	shares, costBasis := CalculateCostBasis(txs)

	assert.True(t, shares.IsZero(), "shares = %s", shares)
	assert.True(t, costBasis.IsZero(), "costBasis = %s", costBasis)
}

func TestCalculateCostBasis_SellReducesByAverageCost(t *testing.T) {
	txs := []domain.Transaction{
		buy("2024-01-01", 100, 150, 5),
		buy("2024-02-01", 50, 160, 3),
	}

	sharesBefore, costBefore := CalculateCostBasis(txs)
	avgBefore := costBefore.Div(sharesBefore)

	sold := decimal.NewFromInt(60)
	txs = append(txs, sell("2024-03-01", 60, 170, 1))
	shares, cost := CalculateCostBasis(txs)

	assert.True(t, shares.Equal(sharesBefore.Sub(sold)))
	assert.True(t, cost.Equal(costBefore.Sub(sold.Mul(avgBefore))),
		"cost %s, expected %s", cost, costBefore.Sub(sold.Mul(avgBefore)))
}

func TestCalculateCostBasis_OversellClampsToHeldShares(t *testing.T) {
	txs := []domain.Transaction{
		buy("2024-01-01", 50, 100, 0),
		sell("2024-02-01", 80, 110, 0),
	}

	shares, costBasis := CalculateCostBasis(txs)

	assert.True(t, shares.IsZero(), "shares = %s", shares)
	assert.True(t, costBasis.IsZero(), "costBasis = %s", costBasis)
	assert.True(t, OversellClamped(txs))
}

func TestCalculateCostBasis_SellWithNothingHeldIsNoOp(t *testing.T) {
	txs := []domain.Transaction{
		sell("2024-01-01", 10, 100, 0),
		buy("2024-02-01", 10, 100, 0),
	}

	shares, costBasis := CalculateCostBasis(txs)

	assert.True(t, shares.Equal(decimal.NewFromInt(10)))
	assert.True(t, costBasis.Equal(decimal.NewFromInt(1000)))
}

func TestCalculateCostBasis_NeverNegative(t *testing.T) {
	// Adversarial mixes of oversells, flat-position splits and dividends.
	sequences := [][]domain.Transaction{
		{sell("2024-01-01", 10, 5, 0)},
		{split("2024-01-01", 3), sell("2024-01-02", 10, 5, 0)},
		{
			buy("2024-01-01", 5, 10, 1),
			sell("2024-01-02", 50, 10, 1),
			split("2024-01-03", 2),
			sell("2024-01-04", 1, 10, 0),
			dividend("2024-01-05", 1),
		},
		{
			buy("2024-01-01", 3, 33.33, 0.07),
			sell("2024-01-02", 1, 40, 0.07),
			sell("2024-01-03", 2, 41, 0.07),
			sell("2024-01-04", 2, 42, 0.07),
		},
	}

	for i, txs := range sequences {
		shares, cost := CalculateCostBasis(txs)
		assert.False(t, shares.IsNegative(), "sequence %d: shares %s", i, shares)
		assert.False(t, cost.IsNegative(), "sequence %d: cost %s", i, cost)
	}
}

func TestCalculateCostBasis_DividendHasNoEffect(t *testing.T) {
	base := []domain.Transaction{buy("2024-01-01", 100, 150, 5)}
	withDividend := append(append([]domain.Transaction{}, base...), dividend("2024-02-01", 1.25))

	s1, c1 := CalculateCostBasis(base)
	s2, c2 := CalculateCostBasis(withDividend)

	assert.True(t, s1.Equal(s2))
	assert.True(t, c1.Equal(c2))
}

func TestCalculatePositionMetrics_ZeroShares(t *testing.T) {
	avg := CalculatePositionMetrics(decimal.Zero, decimal.Zero)
	assert.True(t, avg.IsZero())
}

func TestCalculateCurrentAllocationPercentage(t *testing.T) {
	tests := []struct {
		name     string
		position float64
		total    float64
		want     float64
	}{
		{"half of portfolio", 500, 1000, 50},
		{"empty portfolio", 500, 0, 0},
		{"full portfolio", 1000, 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCurrentAllocationPercentage(
				decimal.NewFromFloat(tt.position),
				decimal.NewFromFloat(tt.total),
			)
			assert.True(t, got.Equal(decimal.NewFromFloat(tt.want)), "got %s", got)
		})
	}
}

func TestCalculateRebalancingAmount(t *testing.T) {
	// Target 25% of a 10000 portfolio with 2000 currently held: buy 500.
	got := CalculateRebalancingAmount(
		decimal.NewFromInt(2000),
		decimal.NewFromInt(25),
		decimal.NewFromInt(10000),
	)
	assert.True(t, got.Equal(decimal.NewFromInt(500)), "got %s", got)

	// Overweight position yields a negative (sell) amount.
	got = CalculateRebalancingAmount(
		decimal.NewFromInt(4000),
		decimal.NewFromInt(25),
		decimal.NewFromInt(10000),
	)
	assert.True(t, got.Equal(decimal.NewFromInt(-1500)), "got %s", got)
}

func TestDetermineRebalancingStatus(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    RebalancingStatus
	}{
		{"exactly on target", 25, 25, StatusBalanced},
		{"within half point", 25.5, 25, StatusBalanced},
		{"just over band", 25.51, 25, StatusOverweight},
		{"under band", 24.4, 25, StatusUnderweight},
		{"no target set", 10, 0, StatusOverweight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineRebalancingStatus(
				decimal.NewFromFloat(tt.current),
				decimal.NewFromFloat(tt.target),
			)
			assert.Equal(t, tt.want, got)
		})
	}
}
