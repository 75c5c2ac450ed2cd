package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Weighted-average cost basis accounting. All purchased lots are pooled into
// a single average cost per share; there is no per-lot (FIFO/LIFO) tracking.

// RebalancingStatus classifies a position's allocation versus its target.
type RebalancingStatus string

const (
	StatusBalanced    RebalancingStatus = "balanced"
	StatusOverweight  RebalancingStatus = "overweight"
	StatusUnderweight RebalancingStatus = "underweight"
)

// balancedBandPct is the tolerance, in percentage points, within which a
// position counts as balanced.
var balancedBandPct = decimal.NewFromFloat(0.5)

var hundred = decimal.NewFromInt(100)

// CalculateCostBasis folds a transaction list into current total shares and
// cost basis. Transactions are sorted by date first: chronological order is
// load-bearing, because splits and sells only affect shares held at that
// point in time.
//
// Sells of more than the held quantity clamp to the available shares. That
// silently hides a likely data-entry error, but it is the established
// behavior; the clamp is surfaced to callers via the service log instead.
func CalculateCostBasis(transactions []domain.Transaction) (totalShares, costBasis decimal.Decimal) {
	ordered := make([]domain.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	shares := decimal.Zero
	cost := decimal.Zero

	for _, tx := range ordered {
		switch tx.Type {
		case domain.TransactionBuy:
			shares = shares.Add(tx.Quantity)
			cost = cost.Add(tx.Quantity.Mul(tx.Price)).Add(tx.Fees)

		case domain.TransactionSell:
			if shares.IsZero() {
				continue // cannot sell nothing
			}
			avgCost := cost.Div(shares)
			sharesToSell := decimal.Min(tx.Quantity, shares)
			cost = cost.Sub(sharesToSell.Mul(avgCost))
			shares = shares.Sub(sharesToSell)
			if shares.IsZero() {
				// Eliminate rounding residue after full liquidation.
				cost = decimal.Zero
			}

		case domain.TransactionSplit:
			// A split with nothing held, or dated before the first
			// purchase, has no effect.
			if shares.IsZero() || !tx.Quantity.IsPositive() {
				continue
			}
			shares = shares.Mul(tx.Quantity)
			// Cost basis is unchanged; the average cost per share drops.

		case domain.TransactionDividend:
			// Dividends affect neither share count nor cost basis.
		}
	}

	return shares, cost
}

// OversellClamped reports whether any sell in the list exceeded the shares
// held at its date, i.e. whether CalculateCostBasis clamped a sell.
func OversellClamped(transactions []domain.Transaction) bool {
	ordered := make([]domain.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	shares := decimal.Zero
	for _, tx := range ordered {
		switch tx.Type {
		case domain.TransactionBuy:
			shares = shares.Add(tx.Quantity)
		case domain.TransactionSell:
			if tx.Quantity.GreaterThan(shares) {
				return true
			}
			shares = shares.Sub(tx.Quantity)
		case domain.TransactionSplit:
			if !shares.IsZero() && tx.Quantity.IsPositive() {
				shares = shares.Mul(tx.Quantity)
			}
		}
	}
	return false
}

// CalculatePositionMetrics derives the average share price from cost basis.
func CalculatePositionMetrics(totalShares, costBasis decimal.Decimal) (averageSharePrice decimal.Decimal) {
	if totalShares.IsZero() {
		return decimal.Zero
	}
	return costBasis.Div(totalShares)
}

// CalculateCurrentAllocationPercentage returns positionValue as a percentage
// of totalValue, or 0 for an empty portfolio.
func CalculateCurrentAllocationPercentage(positionValue, totalValue decimal.Decimal) decimal.Decimal {
	if totalValue.IsZero() {
		return decimal.Zero
	}
	return positionValue.Div(totalValue).Mul(hundred)
}

// CalculateRebalancingAmount is the signed cash delta that would move a
// position to its target weight: positive means buy, negative means sell.
func CalculateRebalancingAmount(currentValue, targetPct, totalValue decimal.Decimal) decimal.Decimal {
	return targetPct.Div(hundred).Mul(totalValue).Sub(currentValue)
}

// DetermineRebalancingStatus compares current and target allocation
// percentages. Deviations within 0.5 percentage points count as balanced.
func DetermineRebalancingStatus(currentPct, targetPct decimal.Decimal) RebalancingStatus {
	diff := currentPct.Sub(targetPct)
	if diff.Abs().LessThanOrEqual(balancedBandPct) {
		return StatusBalanced
	}
	if diff.IsPositive() {
		return StatusOverweight
	}
	return StatusUnderweight
}
