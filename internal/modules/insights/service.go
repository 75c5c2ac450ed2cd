package insights

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/domain"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
)

// PositionSource supplies derived positions with market data.
type PositionSource interface {
	GetPositions(ctx context.Context, userID string) (portfolio.PortfolioView, error)
}

// TransactionSource supplies the user's full transaction history.
type TransactionSource interface {
	GetTransactions(userID string) ([]domain.Transaction, error)
}

// Service runs all registered analyzers over a portfolio snapshot and
// concatenates their findings.
type Service struct {
	positions    PositionSource
	transactions TransactionSource
	analyzers    []Analyzer
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates an insights service with the default analyzer set.
func NewService(positions PositionSource, transactions TransactionSource, log zerolog.Logger) *Service {
	return &Service{
		positions:    positions,
		transactions: transactions,
		analyzers: []Analyzer{
			NewRiskAnalyzer(),
			NewTrendAnalyzer(),
			NewIncomeAnalyzer(),
			NewEfficiencyAnalyzer(),
		},
		now: time.Now,
		log: log.With().Str("service", "insights").Logger(),
	}
}

// Generate builds the snapshot and runs every analyzer concurrently. A
// failing analyzer is logged and skipped so the others still report; a
// cancelled context aborts the whole run instead of returning a partial list.
func (s *Service) Generate(ctx context.Context, userID string) ([]domain.Insight, error) {
	view, err := s.positions.GetPositions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	transactions, err := s.transactions.GetTransactions(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	snap := &Snapshot{
		Positions:    view.Positions,
		Transactions: transactions,
		Now:          s.now().UTC(),
	}

	results := make([][]domain.Insight, len(s.analyzers))

	var wg sync.WaitGroup
	for i, analyzer := range s.analyzers {
		wg.Add(1)
		go func(i int, analyzer Analyzer) {
			defer wg.Done()

			insights, err := analyzer.Analyze(ctx, snap)
			if err != nil {
				s.log.Warn().Err(err).Str("analyzer", analyzer.Name()).Msg("Analyzer failed, skipping its results")
				return
			}
			results[i] = insights
		}(i, analyzer)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Concatenate in registration order so the display order is stable.
	combined := []domain.Insight{}
	for _, insights := range results {
		combined = append(combined, insights...)
	}

	return combined, nil
}
