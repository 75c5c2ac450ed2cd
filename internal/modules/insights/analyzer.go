package insights

import (
	"context"
	"time"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Snapshot is the immutable input shared by all analyzers. Positions carry
// market-dependent fields when current prices were available; analyzers that
// need them skip positions where they are nil.
type Snapshot struct {
	Positions    []domain.Position
	Transactions []domain.Transaction
	Now          time.Time
}

// Analyzer scans a portfolio snapshot for one family of noteworthy patterns.
// Implementations must return an empty list, not an error, when there is
// nothing to report or not enough data to analyze.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, snap *Snapshot) ([]domain.Insight, error)
}

// investedValue sums the market value of all positions. Positions without a
// market value contribute nothing.
func investedValue(positions []domain.Position) float64 {
	total := 0.0
	for _, pos := range positions {
		if pos.MarketValue != nil {
			total += pos.MarketValue.InexactFloat64()
		}
	}
	return total
}
