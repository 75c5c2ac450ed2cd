package rebalancing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/pkg/formulas"
)

// TimedRebalance annotates the standard actions with one-year price
// percentile and RSI signals. Buys are emphasized only when the price is
// cheap (percentile at or below the low threshold), sells only when it is
// expensive. Actions below the noise amount are dropped entirely.
func (s *Service) TimedRebalance(ctx context.Context, userID string) (TimedResponse, error) {
	view, err := s.positions.GetPositions(ctx, userID)
	if err != nil {
		return TimedResponse{}, fmt.Errorf("failed to get positions: %w", err)
	}

	standard := s.actionsFromView(view)

	currentPrices := make(map[string]decimal.Decimal)
	for _, pos := range view.Positions {
		if pos.CurrentPrice != nil {
			currentPrices[pos.Ticker] = *pos.CurrentPrice
		}
	}

	resp := TimedResponse{
		Actions:     []TimedAction{},
		Prioritized: []PrioritizedAction{},
	}

	for _, action := range standard.Actions {
		if action.Amount.LessThan(s.opts.NoiseAmount) {
			continue // not worth the transaction costs
		}

		price, ok := currentPrices[action.Ticker]
		if !ok {
			continue
		}

		timed, err := s.annotate(ctx, action, price)
		if err != nil {
			// A missing history series only removes the timing signal for
			// this ticker, not the whole response.
			s.log.Warn().Err(err).Str("ticker", action.Ticker).Msg("No price history, skipping timing signal")
			continue
		}

		resp.Actions = append(resp.Actions, timed)
	}

	prioritized, err := s.prioritizer.Prioritize(ctx, resp.Actions)
	if err != nil {
		return TimedResponse{}, fmt.Errorf("prioritization failed: %w", err)
	}
	resp.Prioritized = prioritized

	return resp, nil
}

// annotate computes the 1Y percentile and RSI for one action.
func (s *Service) annotate(ctx context.Context, action Action, currentPrice decimal.Decimal) (TimedAction, error) {
	history, err := s.history.GetHistoricalPrices(ctx, action.Ticker, "1Y")
	if err != nil {
		return TimedAction{}, err
	}
	if len(history) == 0 {
		return TimedAction{}, fmt.Errorf("empty price history for %s", action.Ticker)
	}

	closes := make([]float64, len(history))
	for i, point := range history {
		closes[i] = point.Close.InexactFloat64()
	}

	percentile := decimal.NewFromFloat(
		formulas.Percentile(closes, currentPrice.InexactFloat64()),
	).Mul(decimal.NewFromInt(100))

	timed := TimedAction{
		Action:          action,
		PricePercentile: percentile,
		Signal:          SignalNeutral,
	}

	if rsi := formulas.RSI(closes, s.opts.RSIPeriod); rsi != nil {
		value := decimal.NewFromFloat(*rsi)
		timed.RSI = &value
	}

	switch action.Action {
	case ActionBuy:
		if percentile.LessThanOrEqual(s.opts.LowPercentile) {
			timed.Signal = SignalCheap
			timed.Emphasized = true
		}
	case ActionSell:
		if percentile.GreaterThanOrEqual(s.opts.HighPercentile) {
			timed.Signal = SignalExpensive
			timed.Emphasized = true
		}
	}

	return timed, nil
}
