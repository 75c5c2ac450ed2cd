package portfolio

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// PortfolioView is the API-facing snapshot of all derived positions.
type PortfolioView struct {
	Positions      []domain.Position `json:"positions"`
	TotalValue     decimal.Decimal   `json:"total_value"`
	TotalCostBasis decimal.Decimal   `json:"total_cost_basis"`
}

// PriceSource supplies current market prices for a set of tickers.
// Tickers without a quote are simply absent from the result map.
type PriceSource interface {
	GetCurrentPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// TargetSource supplies the user's allocation targets.
type TargetSource interface {
	GetByUser(userID string) ([]domain.AllocationTarget, error)
}

// SecurityCatalog answers whether tickers are known instruments.
type SecurityCatalog interface {
	Exists(ticker string) (bool, error)
}
