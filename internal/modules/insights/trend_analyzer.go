package insights

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Momentum and drawdown thresholds, as percent gain/loss vs average cost.
var (
	momentumInfoPct     = 20.0
	momentumWarningPct  = 50.0
	drawdownWarningPct  = -15.0
	drawdownCriticalPct = -30.0
)

// TrendAnalyzer flags strong winners and deep losers relative to each
// position's average cost. Positions without a current price or with a zero
// average cost are skipped; there is nothing meaningful to compare against.
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// Name identifies the analyzer in logs and failure reports.
func (a *TrendAnalyzer) Name() string {
	return "trend"
}

// Analyze checks every priced position for momentum and drawdown signals.
func (a *TrendAnalyzer) Analyze(_ context.Context, snap *Snapshot) ([]domain.Insight, error) {
	insights := []domain.Insight{}

	for _, pos := range snap.Positions {
		if pos.GainLossPct == nil || pos.AverageSharePrice.IsZero() {
			continue
		}

		gainPct := pos.GainLossPct.InexactFloat64()
		switch {
		case gainPct > momentumInfoPct:
			severity := domain.SeverityInfo
			if gainPct > momentumWarningPct {
				// Large unrealized gains concentrate risk and may warrant
				// trimming, so the stronger signal escalates.
				severity = domain.SeverityWarning
			}
			insights = append(insights, domain.Insight{
				Category:      domain.CategoryTrend,
				Title:         fmt.Sprintf("%s is up strongly", pos.Ticker),
				Message:       fmt.Sprintf("%s has gained %.1f%% over your average cost of %s.", pos.Ticker, gainPct, pos.AverageSharePrice.StringFixed(2)),
				RelatedTicker: pos.Ticker,
				Severity:      severity,
				Metadata: map[string]interface{}{
					"gain_pct": gainPct,
				},
				Visual: a.visual(pos, gainPct),
			})

		case gainPct < drawdownWarningPct:
			severity := domain.SeverityWarning
			if gainPct < drawdownCriticalPct {
				severity = domain.SeverityCritical
			}
			insights = append(insights, domain.Insight{
				Category:      domain.CategoryTrend,
				Title:         fmt.Sprintf("%s is down significantly", pos.Ticker),
				Message:       fmt.Sprintf("%s has lost %.1f%% against your average cost of %s.", pos.Ticker, -gainPct, pos.AverageSharePrice.StringFixed(2)),
				RelatedTicker: pos.Ticker,
				Severity:      severity,
				Metadata: map[string]interface{}{
					"loss_pct": gainPct,
				},
				Visual: a.visual(pos, gainPct),
			})
		}
	}

	return insights, nil
}

func (a *TrendAnalyzer) visual(pos domain.Position, gainPct float64) *domain.VisualContext {
	if pos.CurrentPrice == nil {
		return nil
	}
	return &domain.VisualContext{
		CurrentValue: decimal.NewFromFloat(gainPct).Round(2),
		TargetValue:  decimal.Zero,
		Format:       domain.FormatPercent,
	}
}
