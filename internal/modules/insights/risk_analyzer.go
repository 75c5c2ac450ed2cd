package insights

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Concentration and diversification thresholds.
var (
	concentrationWarningPct  = 20.0
	concentrationCriticalPct = 40.0
	diversificationInfoMin   = 5
	diversificationWarnMin   = 3
)

// RiskAnalyzer flags concentration and diversification problems. Sector
// exposure checks wait on sector metadata in the security catalog and emit
// nothing for now.
type RiskAnalyzer struct{}

// NewRiskAnalyzer creates a new risk analyzer
func NewRiskAnalyzer() *RiskAnalyzer {
	return &RiskAnalyzer{}
}

// Name identifies the analyzer in logs and failure reports.
func (a *RiskAnalyzer) Name() string {
	return "risk"
}

// Analyze checks each position's share of invested value and the overall
// asset count.
func (a *RiskAnalyzer) Analyze(_ context.Context, snap *Snapshot) ([]domain.Insight, error) {
	if len(snap.Positions) == 0 {
		return []domain.Insight{}, nil
	}

	insights := []domain.Insight{}
	insights = append(insights, a.concentration(snap)...)
	insights = append(insights, a.diversification(snap)...)
	return insights, nil
}

func (a *RiskAnalyzer) concentration(snap *Snapshot) []domain.Insight {
	total := investedValue(snap.Positions)
	if total <= 0 {
		return nil
	}

	var insights []domain.Insight
	for _, pos := range snap.Positions {
		if pos.MarketValue == nil {
			continue
		}

		sharePct := pos.MarketValue.InexactFloat64() / total * 100
		if sharePct <= concentrationWarningPct {
			continue
		}

		severity := domain.SeverityWarning
		if sharePct > concentrationCriticalPct {
			severity = domain.SeverityCritical
		}

		insights = append(insights, domain.Insight{
			Category:      domain.CategoryRisk,
			Title:         fmt.Sprintf("%s dominates your portfolio", pos.Ticker),
			Message:       fmt.Sprintf("%s makes up %.1f%% of your invested value. A single position this large exposes you to company-specific risk.", pos.Ticker, sharePct),
			RelatedTicker: pos.Ticker,
			Severity:      severity,
			Metadata: map[string]interface{}{
				"share_pct": sharePct,
			},
			Visual: &domain.VisualContext{
				CurrentValue: decimal.NewFromFloat(sharePct).Round(2),
				TargetValue:  decimal.NewFromFloat(concentrationWarningPct),
				Format:       domain.FormatPercent,
			},
		})
	}

	return insights
}

func (a *RiskAnalyzer) diversification(snap *Snapshot) []domain.Insight {
	count := len(snap.Positions)
	if count >= diversificationInfoMin {
		return nil
	}

	severity := domain.SeverityInfo
	if count < diversificationWarnMin {
		severity = domain.SeverityWarning
	}

	return []domain.Insight{{
		Category: domain.CategoryRisk,
		Title:    "Portfolio has few holdings",
		Message:  fmt.Sprintf("You hold %d distinct assets. Spreading across at least %d reduces single-asset risk.", count, diversificationInfoMin),
		Severity: severity,
		Metadata: map[string]interface{}{
			"asset_count": count,
		},
	}}
}
