package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// seasonalityWindow is how far from the historically expected payment date a
// projection is still worth surfacing.
const seasonalityWindow = 30 * 24 * time.Hour

// IncomeAnalyzer projects dividend payments from payment seasonality. A
// security that paid a dividend in the current calendar month of a prior year
// is expected to pay again around the same date.
type IncomeAnalyzer struct{}

// NewIncomeAnalyzer creates a new income analyzer
func NewIncomeAnalyzer() *IncomeAnalyzer {
	return &IncomeAnalyzer{}
}

// Name identifies the analyzer in logs and failure reports.
func (a *IncomeAnalyzer) Name() string {
	return "income"
}

// Analyze projects an expected payment per dividend-paying security when the
// seasonally expected date falls within the surfacing window.
func (a *IncomeAnalyzer) Analyze(_ context.Context, snap *Snapshot) ([]domain.Insight, error) {
	if len(snap.Positions) == 0 {
		return []domain.Insight{}, nil
	}

	dividends := make(map[string][]domain.Transaction)
	for _, tx := range snap.Transactions {
		if tx.Type == domain.TransactionDividend {
			dividends[tx.Ticker] = append(dividends[tx.Ticker], tx)
		}
	}

	shares := make(map[string]decimal.Decimal, len(snap.Positions))
	for _, pos := range snap.Positions {
		shares[pos.Ticker] = pos.TotalShares
	}

	insights := []domain.Insight{}
	for ticker, history := range dividends {
		held, ok := shares[ticker]
		if !ok || held.IsZero() {
			continue
		}

		expected, ok := a.seasonalProjection(history, held, snap.Now)
		if !ok {
			continue
		}

		insights = append(insights, domain.Insight{
			Category:      domain.CategoryIncome,
			Title:         fmt.Sprintf("Dividend from %s expected soon", ticker),
			Message:       fmt.Sprintf("%s has historically paid a dividend around this time of year. Based on past payments you can expect roughly %s.", ticker, expected.StringFixed(2)),
			RelatedTicker: ticker,
			Severity:      domain.SeverityInfo,
			Metadata: map[string]interface{}{
				"expected_amount": expected.InexactFloat64(),
			},
			Visual: &domain.VisualContext{
				CurrentValue: decimal.Zero,
				TargetValue:  expected,
				Format:       domain.FormatCurrency,
			},
		})
	}

	return insights, nil
}

// seasonalProjection returns the expected payment amount when the history
// shows a payment in the current calendar month of a prior year close enough
// to now. The projection is the historical average per-share dividend times
// the average share count the past payments were made on; when no payment
// recorded its share count the currently held shares stand in.
func (a *IncomeAnalyzer) seasonalProjection(
	history []domain.Transaction,
	held decimal.Decimal,
	now time.Time,
) (decimal.Decimal, bool) {
	perShareSum := decimal.Zero
	perShareCount := 0
	shareSum := decimal.Zero
	shareCount := 0
	var seasonalMatch *time.Time

	for i, tx := range history {
		if tx.Price.IsPositive() {
			perShareSum = perShareSum.Add(tx.Price)
			perShareCount++
		}
		if tx.Quantity.IsPositive() {
			shareSum = shareSum.Add(tx.Quantity)
			shareCount++
		}

		if tx.Date.Month() == now.Month() && tx.Date.Year() < now.Year() {
			// Project the historical payment date into the current year and
			// check it lies within the surfacing window.
			projected := time.Date(now.Year(), tx.Date.Month(), tx.Date.Day(),
				0, 0, 0, 0, time.UTC)
			if delta := projected.Sub(now); delta > -seasonalityWindow && delta < seasonalityWindow {
				seasonalMatch = &history[i].Date
			}
		}
	}

	if seasonalMatch == nil || perShareCount == 0 {
		return decimal.Zero, false
	}

	avgShares := held
	if shareCount > 0 {
		avgShares = shareSum.Div(decimal.NewFromInt(int64(shareCount)))
	}

	avgPerShare := perShareSum.Div(decimal.NewFromInt(int64(perShareCount)))
	return avgPerShare.Mul(avgShares).Round(2), true
}
