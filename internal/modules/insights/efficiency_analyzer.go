package insights

import (
	"context"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// EfficiencyAnalyzer will flag dead assets and cash drag. Both checks need
// per-position activity history that is not collected yet, so they currently
// report nothing. The analyzer stays registered so the pipeline contract is
// stable once the checks land.
type EfficiencyAnalyzer struct{}

// NewEfficiencyAnalyzer creates a new efficiency analyzer
func NewEfficiencyAnalyzer() *EfficiencyAnalyzer {
	return &EfficiencyAnalyzer{}
}

// Name identifies the analyzer in logs and failure reports.
func (a *EfficiencyAnalyzer) Name() string {
	return "efficiency"
}

// Analyze never fails and never reports; see the type comment.
func (a *EfficiencyAnalyzer) Analyze(_ context.Context, _ *Snapshot) ([]domain.Insight, error) {
	insights := []domain.Insight{}
	insights = append(insights, a.deadAssets()...)
	insights = append(insights, a.cashDrag()...)
	return insights, nil
}

func (a *EfficiencyAnalyzer) deadAssets() []domain.Insight {
	return nil
}

func (a *EfficiencyAnalyzer) cashDrag() []domain.Insight {
	return nil
}
