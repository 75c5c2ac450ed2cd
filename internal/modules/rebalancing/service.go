package rebalancing

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
)

// Options tune the timed rebalancing signals.
type Options struct {
	// LowPercentile is the 1Y price percentile (0-100) at or below which a
	// buy counts as cheap.
	LowPercentile decimal.Decimal
	// HighPercentile is the percentile at or above which a sell counts as
	// expensive.
	HighPercentile decimal.Decimal
	// NoiseAmount drops actions whose absolute amount is below it.
	NoiseAmount decimal.Decimal
	// RSIPeriod for the indicator annotation on timed actions.
	RSIPeriod int
}

// DefaultOptions mirror the thresholds used by the scheduler-driven flows.
func DefaultOptions() Options {
	return Options{
		LowPercentile:  decimal.NewFromInt(30),
		HighPercentile: decimal.NewFromInt(70),
		NoiseAmount:    decimal.NewFromInt(100),
		RSIPeriod:      14,
	}
}

// Service turns allocation deviations into buy/sell proposals.
type Service struct {
	positions   PositionSource
	history     HistorySource
	prioritizer Prioritizer
	opts        Options
	log         zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(
	positions PositionSource,
	history HistorySource,
	prioritizer Prioritizer,
	opts Options,
	log zerolog.Logger,
) *Service {
	if prioritizer == nil {
		prioritizer = amountPrioritizer{}
	}
	return &Service{
		positions:   positions,
		history:     history,
		prioritizer: prioritizer,
		opts:        opts,
		log:         log.With().Str("service", "rebalancing").Logger(),
	}
}

// CalculateActions runs the standard rebalancing pass: one signed amount per
// held ticker, scaled to the total portfolio value.
func (s *Service) CalculateActions(ctx context.Context, userID string) (ActionsResponse, error) {
	view, err := s.positions.GetPositions(ctx, userID)
	if err != nil {
		return ActionsResponse{}, fmt.Errorf("failed to get positions: %w", err)
	}

	return s.actionsFromView(view), nil
}

// actionsFromView builds the standard actions from an already-loaded position
// view, so callers holding one don't fetch it twice.
func (s *Service) actionsFromView(view portfolio.PortfolioView) ActionsResponse {
	resp := ActionsResponse{
		Actions:     []Action{},
		TotalBuy:    decimal.Zero,
		TotalSell:   decimal.Zero,
		NetCashFlow: decimal.Zero,
	}

	for _, pos := range view.Positions {
		if pos.RebalancingDelta == nil || pos.CurrentAlloc == nil || pos.TargetAlloc == nil {
			continue // no market data for this ticker
		}

		delta := *pos.RebalancingDelta
		action := Action{
			Ticker:     pos.Ticker,
			CurrentPct: *pos.CurrentAlloc,
			TargetPct:  *pos.TargetAlloc,
			Deviation:  pos.CurrentAlloc.Sub(*pos.TargetAlloc),
		}

		if delta.IsPositive() {
			action.Action = ActionBuy
			action.Amount = delta
			resp.TotalBuy = resp.TotalBuy.Add(delta)
		} else {
			action.Action = ActionSell
			action.Amount = delta.Neg()
			resp.TotalSell = resp.TotalSell.Add(delta.Neg())
		}

		resp.Actions = append(resp.Actions, action)
	}

	resp.NetCashFlow = resp.TotalBuy.Sub(resp.TotalSell)

	sort.Slice(resp.Actions, func(i, j int) bool {
		return resp.Actions[i].Amount.GreaterThan(resp.Actions[j].Amount)
	})

	return resp
}

// amountPrioritizer is the default prioritization step: largest amounts
// first, with a one-line summary per action.
type amountPrioritizer struct{}

func (amountPrioritizer) Prioritize(_ context.Context, actions []TimedAction) ([]PrioritizedAction, error) {
	ranked := make([]TimedAction, len(actions))
	copy(ranked, actions)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Emphasized != ranked[j].Emphasized {
			return ranked[i].Emphasized
		}
		return ranked[i].Amount.GreaterThan(ranked[j].Amount)
	})

	prioritized := make([]PrioritizedAction, len(ranked))
	for i, action := range ranked {
		prioritized[i] = PrioritizedAction{
			TimedAction: action,
			Priority:    i + 1,
			Summary: fmt.Sprintf("%s %s for %s (1Y percentile %s)",
				action.Action, action.Ticker, action.Amount.StringFixed(2),
				action.PricePercentile.StringFixed(0)),
		}
	}
	return prioritized, nil
}
