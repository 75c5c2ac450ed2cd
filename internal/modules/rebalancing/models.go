package rebalancing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
)

// ActionType is the direction of a proposed trade.
type ActionType string

const (
	ActionBuy  ActionType = "buy"
	ActionSell ActionType = "sell"
)

// Action is one proposed trade from the standard rebalancing pass.
type Action struct {
	Ticker     string          `json:"ticker"`
	Action     ActionType      `json:"action"`
	Amount     decimal.Decimal `json:"amount"` // always positive; direction is in Action
	CurrentPct decimal.Decimal `json:"current_pct"`
	TargetPct  decimal.Decimal `json:"target_pct"`
	Deviation  decimal.Decimal `json:"deviation"` // current - target, percentage points
}

// ActionsResponse is the standard rebalancing result. For a closed rebalance
// the net cash flow is ideally near zero.
type ActionsResponse struct {
	Actions     []Action        `json:"actions"`
	TotalBuy    decimal.Decimal `json:"total_buy"`
	TotalSell   decimal.Decimal `json:"total_sell"`
	NetCashFlow decimal.Decimal `json:"net_cash_flow"`
}

// SmartRecommendation allocates a slice of new money to one underweight ticker.
type SmartRecommendation struct {
	Ticker            string          `json:"ticker"`
	CurrentPct        decimal.Decimal `json:"current_pct"`
	TargetPct         decimal.Decimal `json:"target_pct"`
	GapScore          decimal.Decimal `json:"gap_score"` // target - current, percentage points
	RecommendedAmount decimal.Decimal `json:"recommended_amount"`
}

// SmartResponse is the new-money allocation result.
type SmartResponse struct {
	InvestmentAmount decimal.Decimal       `json:"investment_amount"`
	Recommendations  []SmartRecommendation `json:"recommendations"`
	TotalAllocated   decimal.Decimal       `json:"total_allocated"`
}

// PriceSignal classifies where the current price sits in its one-year range.
type PriceSignal string

const (
	SignalCheap     PriceSignal = "cheap"
	SignalExpensive PriceSignal = "expensive"
	SignalNeutral   PriceSignal = "neutral"
)

// TimedAction is a standard action annotated with price-timing signals.
type TimedAction struct {
	Action
	PricePercentile decimal.Decimal  `json:"price_percentile"` // 0-100 within the 1Y range
	Signal          PriceSignal      `json:"signal"`
	Emphasized      bool             `json:"emphasized"`
	RSI             *decimal.Decimal `json:"rsi,omitempty"`
}

// PrioritizedAction is the ranked output of the external prioritization step.
type PrioritizedAction struct {
	TimedAction
	Priority int    `json:"priority"` // 1 is most urgent
	Summary  string `json:"summary"`
}

// TimedResponse is the timed rebalancing result.
type TimedResponse struct {
	Actions     []TimedAction       `json:"actions"`
	Prioritized []PrioritizedAction `json:"prioritized"`
}

// PositionSource supplies derived positions with market and allocation fields.
type PositionSource interface {
	GetPositions(ctx context.Context, userID string) (portfolio.PortfolioView, error)
}

// HistorySource supplies historical closing prices for timing signals.
type HistorySource interface {
	GetHistoricalPrices(ctx context.Context, ticker, period string) ([]domain.PricePoint, error)
}

// Prioritizer ranks timed actions for execution. It is an external
// collaborator; implementations may reorder or drop actions.
type Prioritizer interface {
	Prioritize(ctx context.Context, actions []TimedAction) ([]PrioritizedAction, error)
}
