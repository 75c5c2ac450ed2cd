package allocation

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// SecurityCatalog answers whether tickers are known instruments.
type SecurityCatalog interface {
	Exists(ticker string) (bool, error)
}

// Service manages user allocation targets.
type Service struct {
	repo    *Repository
	catalog SecurityCatalog
	log     zerolog.Logger
}

// NewService creates a new allocation service
func NewService(repo *Repository, catalog SecurityCatalog, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		log:     log.With().Str("service", "allocation").Logger(),
	}
}

// GetByUser returns the user's targets. Passed through so the repository
// satisfies the portfolio module's TargetSource contract directly.
func (s *Service) GetByUser(userID string) ([]domain.AllocationTarget, error) {
	return s.repo.GetByUser(userID)
}

// GetTargets returns the targets together with their percentage sum, which
// the UI uses to warn when targets do not add up to 100.
func (s *Service) GetTargets(userID string) (TargetsResponse, error) {
	targets, err := s.repo.GetByUser(userID)
	if err != nil {
		return TargetsResponse{}, fmt.Errorf("failed to load targets: %w", err)
	}

	resp := TargetsResponse{
		Targets:  []TargetItem{},
		TotalPct: decimal.Zero,
	}
	for _, t := range targets {
		resp.Targets = append(resp.Targets, TargetItem{Ticker: t.Ticker, TargetPct: t.TargetPct})
		resp.TotalPct = resp.TotalPct.Add(t.TargetPct)
	}
	return resp, nil
}

// SetTarget validates and stores a target for one ticker.
func (s *Service) SetTarget(userID string, target domain.AllocationTarget) error {
	if target.TargetPct.IsNegative() || target.TargetPct.GreaterThan(decimal.NewFromInt(100)) {
		return &domain.ValidationError{Field: "target_percentage", Reason: "must be between 0 and 100"}
	}

	known, err := s.catalog.Exists(target.Ticker)
	if err != nil {
		return fmt.Errorf("failed to check security catalog: %w", err)
	}
	if !known {
		return &domain.NotFoundError{Tickers: []string{target.Ticker}}
	}

	if err := s.repo.Upsert(userID, target); err != nil {
		return err
	}

	s.log.Info().
		Str("ticker", target.Ticker).
		Str("target_pct", target.TargetPct.String()).
		Msg("Allocation target set")
	return nil
}

// RemoveTarget deletes the target for one ticker.
func (s *Service) RemoveTarget(userID, ticker string) error {
	return s.repo.Delete(userID, ticker)
}
