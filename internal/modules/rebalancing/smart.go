package rebalancing

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// SmartRebalance distributes new money across underweight positions in
// proportion to each position's share of the total allocation gap. Overweight
// and balanced positions receive nothing; nothing is ever sold.
func (s *Service) SmartRebalance(
	ctx context.Context,
	userID string,
	investmentAmount decimal.Decimal,
	maxSecurities int,
) (SmartResponse, error) {
	if !investmentAmount.IsPositive() {
		return SmartResponse{}, &domain.ValidationError{
			Field:  "investment_amount",
			Reason: "must be positive",
		}
	}

	view, err := s.positions.GetPositions(ctx, userID)
	if err != nil {
		return SmartResponse{}, fmt.Errorf("failed to get positions: %w", err)
	}

	var recommendations []SmartRecommendation
	for _, pos := range view.Positions {
		if pos.CurrentAlloc == nil || pos.TargetAlloc == nil {
			continue
		}

		gap := pos.TargetAlloc.Sub(*pos.CurrentAlloc)
		if !gap.IsPositive() {
			continue
		}

		recommendations = append(recommendations, SmartRecommendation{
			Ticker:     pos.Ticker,
			CurrentPct: *pos.CurrentAlloc,
			TargetPct:  *pos.TargetAlloc,
			GapScore:   gap,
		})
	}

	// Highest gap first; cap to the requested number of securities before
	// computing shares so the full amount is spread over the kept set.
	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].GapScore.GreaterThan(recommendations[j].GapScore)
	})
	if maxSecurities > 0 && len(recommendations) > maxSecurities {
		recommendations = recommendations[:maxSecurities]
	}

	totalGap := decimal.Zero
	for _, rec := range recommendations {
		totalGap = totalGap.Add(rec.GapScore)
	}

	resp := SmartResponse{
		InvestmentAmount: investmentAmount,
		Recommendations:  []SmartRecommendation{},
		TotalAllocated:   decimal.Zero,
	}

	if totalGap.IsZero() {
		s.log.Info().Str("user", userID).Msg("No underweight positions, nothing to allocate")
		return resp, nil
	}

	for _, rec := range recommendations {
		rec.RecommendedAmount = investmentAmount.Mul(rec.GapScore).Div(totalGap)
		resp.Recommendations = append(resp.Recommendations, rec)
		resp.TotalAllocated = resp.TotalAllocated.Add(rec.RecommendedAmount)
	}

	return resp, nil
}
