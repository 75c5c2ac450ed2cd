package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the semantic meaning of a transaction record.
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDividend TransactionType = "dividend"
	TransactionSplit    TransactionType = "split"
)

// Transaction is an immutable investment event. Corrections are recorded as
// new transactions, never as mutations of existing ones.
//
// Field semantics vary by type:
//   - buy/sell: Quantity is the number of shares, Price the per-share price.
//   - split: Quantity is the split ratio (2 for a 2-for-1 split), Price is 0.
//   - dividend: Price is the gross per-share dividend, Tax the withheld
//     amount and TotalAmount the optional net payout.
type Transaction struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Ticker      string           `json:"ticker"`
	Type        TransactionType  `json:"type"`
	Date        time.Time        `json:"date"`
	Quantity    decimal.Decimal  `json:"shares_quantity"`
	Price       decimal.Decimal  `json:"share_price"`
	Fees        decimal.Decimal  `json:"fees"`
	Tax         decimal.Decimal  `json:"tax"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Position is the derived holding for a single ticker. It is recomputed from
// the full transaction list on every request; incremental mutation is never
// trusted because splits and sells depend on the share count at their date.
type Position struct {
	Ticker            string          `json:"ticker"`
	TotalShares       decimal.Decimal `json:"total_shares"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	AverageSharePrice decimal.Decimal `json:"average_share_price"`

	// Market-dependent fields, populated when current prices are available.
	CurrentPrice     *decimal.Decimal `json:"current_price,omitempty"`
	MarketValue      *decimal.Decimal `json:"market_value,omitempty"`
	GainLoss         *decimal.Decimal `json:"gain_loss,omitempty"`
	GainLossPct      *decimal.Decimal `json:"gain_loss_pct,omitempty"`
	CurrentAlloc     *decimal.Decimal `json:"current_allocation_pct,omitempty"`
	TargetAlloc      *decimal.Decimal `json:"target_allocation_pct,omitempty"`
	RebalancingDelta *decimal.Decimal `json:"rebalancing_amount,omitempty"`
	Status           string           `json:"rebalancing_status,omitempty"`
}

// Security is a catalog entry for a tradable instrument.
type Security struct {
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name"`
	Exchange    string    `json:"exchange,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Active      bool      `json:"active"`
	LastUpdated time.Time `json:"last_updated"`
}

// AllocationTarget is a user-managed target weight for one ticker.
type AllocationTarget struct {
	Ticker    string          `json:"ticker"`
	TargetPct decimal.Decimal `json:"target_percentage"` // 0-100
	UpdatedAt time.Time       `json:"updated_at"`
}

// InsightCategory classifies an insight for display grouping.
type InsightCategory string

const (
	CategoryRisk        InsightCategory = "risk"
	CategoryOpportunity InsightCategory = "opportunity"
	CategoryTrend       InsightCategory = "trend"
	CategoryEfficiency  InsightCategory = "efficiency"
	CategoryIncome      InsightCategory = "income"
)

// InsightSeverity ranks how urgently an insight needs attention.
type InsightSeverity string

const (
	SeverityInfo     InsightSeverity = "info"
	SeverityWarning  InsightSeverity = "warning"
	SeverityCritical InsightSeverity = "critical"
)

// ValueFormat tells the presentation layer how to render visual context values.
type ValueFormat string

const (
	FormatCurrency ValueFormat = "currency"
	FormatPercent  ValueFormat = "percent"
)

// VisualContext carries the numbers behind an insight so the UI can chart them.
type VisualContext struct {
	CurrentValue   decimal.Decimal  `json:"current_value"`
	TargetValue    decimal.Decimal  `json:"target_value"`
	ProjectedValue *decimal.Decimal `json:"projected_value,omitempty"`
	Format         ValueFormat      `json:"format"`
}

// Insight is a single analyzer finding. Insights are regenerated on every
// analysis request and never persisted.
type Insight struct {
	Category      InsightCategory        `json:"category"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	RelatedTicker string                 `json:"related_ticker,omitempty"`
	Severity      InsightSeverity        `json:"severity"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Visual        *VisualContext         `json:"visual_context,omitempty"`
	ActionLabel   string                 `json:"action_label,omitempty"`
	ActionPayload json.RawMessage        `json:"action_payload,omitempty"`
}

// RiskMetrics summarizes portfolio risk over a lookback period.
type RiskMetrics struct {
	AnnualizedVolatility decimal.Decimal `json:"annualized_volatility"`
	Beta                 decimal.Decimal `json:"beta"`
	SharpeRatio          decimal.Decimal `json:"sharpe_ratio"`
	AnnualizedReturn     decimal.Decimal `json:"annualized_return"`
	MaxDrawdown          decimal.Decimal `json:"max_drawdown"`
	Period               string          `json:"period"`
	BenchmarkTicker      string          `json:"benchmark_ticker"`
}

// EmptyRiskMetrics is the defined value for portfolios with no positions.
func EmptyRiskMetrics(period, benchmark string) RiskMetrics {
	return RiskMetrics{
		AnnualizedVolatility: decimal.Zero,
		Beta:                 decimal.Zero,
		SharpeRatio:          decimal.Zero,
		AnnualizedReturn:     decimal.Zero,
		MaxDrawdown:          decimal.Zero,
		Period:               period,
		BenchmarkTicker:      benchmark,
	}
}

// PricePoint is one entry of a historical price series.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PortfolioSnapshot is a daily summary persisted by the snapshot job.
type PortfolioSnapshot struct {
	UserID        string          `json:"user_id"`
	Date          string          `json:"date"` // YYYY-MM-DD
	TotalValue    decimal.Decimal `json:"total_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	PositionCount int             `json:"position_count"`
}
