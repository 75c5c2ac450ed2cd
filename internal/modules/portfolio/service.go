package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Service derives portfolio state from the transaction history.
type Service struct {
	txRepo    *TransactionRepository
	snapshots *SnapshotRepository
	targets   TargetSource
	catalog   SecurityCatalog
	prices    PriceSource
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	txRepo *TransactionRepository,
	snapshots *SnapshotRepository,
	targets TargetSource,
	catalog SecurityCatalog,
	prices PriceSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		txRepo:    txRepo,
		snapshots: snapshots,
		targets:   targets,
		catalog:   catalog,
		prices:    prices,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// RecordTransaction validates and persists a new transaction. The referenced
// security must exist in the catalog.
func (s *Service) RecordTransaction(userID string, tx domain.Transaction) (domain.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	known, err := s.catalog.Exists(tx.Ticker)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to check security catalog: %w", err)
	}
	if !known {
		return domain.Transaction{}, &domain.NotFoundError{Tickers: []string{tx.Ticker}}
	}

	tx.UserID = userID
	created, err := s.txRepo.Create(tx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.log.Info().
		Str("ticker", created.Ticker).
		Str("type", string(created.Type)).
		Str("quantity", created.Quantity.String()).
		Msg("Transaction recorded")

	return created, nil
}

// GetTransactions returns the user's full transaction history.
func (s *Service) GetTransactions(userID string) ([]domain.Transaction, error) {
	return s.txRepo.GetByUser(userID)
}

// GetTransactionsByTicker returns the history of one holding.
func (s *Service) GetTransactionsByTicker(userID, ticker string) ([]domain.Transaction, error) {
	return s.txRepo.GetByUserAndTicker(userID, strings.ToUpper(ticker))
}

// GetValueHistory returns the user's persisted daily snapshots, newest
// first, capped at limit.
func (s *Service) GetValueHistory(userID string, limit int) ([]domain.PortfolioSnapshot, error) {
	return s.snapshots.GetByUser(userID, limit)
}

// DeleteTransaction removes a transaction record.
func (s *Service) DeleteTransaction(userID, id string) error {
	return s.txRepo.Delete(userID, id)
}

// GetPositions recomputes all positions from scratch and, when prices are
// available, decorates them with market value, allocation and rebalancing
// fields. Positions that were fully liquidated (zero shares) are dropped.
func (s *Service) GetPositions(ctx context.Context, userID string) (PortfolioView, error) {
	transactions, err := s.txRepo.GetByUser(userID)
	if err != nil {
		return PortfolioView{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	byTicker := make(map[string][]domain.Transaction)
	for _, tx := range transactions {
		byTicker[tx.Ticker] = append(byTicker[tx.Ticker], tx)
	}

	var positions []domain.Position
	totalCostBasis := decimal.Zero

	for ticker, txs := range byTicker {
		if OversellClamped(txs) {
			// Likely a data-entry error; kept as a clamp rather than a
			// validation failure, but surfaced here.
			s.log.Warn().Str("ticker", ticker).Msg("Sell quantity exceeded held shares, clamped")
		}

		shares, costBasis := CalculateCostBasis(txs)
		if shares.IsZero() {
			continue
		}

		positions = append(positions, domain.Position{
			Ticker:            ticker,
			TotalShares:       shares,
			CostBasis:         costBasis,
			AverageSharePrice: CalculatePositionMetrics(shares, costBasis),
		})
		totalCostBasis = totalCostBasis.Add(costBasis)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Ticker < positions[j].Ticker
	})

	view := PortfolioView{
		Positions:      positions,
		TotalCostBasis: totalCostBasis,
	}

	if len(positions) == 0 {
		return view, nil
	}

	tickers := make([]string, len(positions))
	for i, pos := range positions {
		tickers[i] = pos.Ticker
	}

	priceMap, err := s.prices.GetCurrentPrices(ctx, tickers)
	if err != nil {
		// Cost basis fields are still useful without market data.
		s.log.Warn().Err(err).Msg("Price lookup failed, returning positions without market fields")
		return view, nil
	}

	s.decorateWithMarketData(userID, &view, priceMap)
	return view, nil
}

// decorateWithMarketData fills market value, gain/loss, allocation and
// rebalancing fields on every position that has a current price.
func (s *Service) decorateWithMarketData(userID string, view *PortfolioView, priceMap map[string]decimal.Decimal) {
	totalValue := decimal.Zero
	for i := range view.Positions {
		pos := &view.Positions[i]
		price, ok := priceMap[pos.Ticker]
		if !ok {
			continue
		}

		marketValue := pos.TotalShares.Mul(price)
		gainLoss := marketValue.Sub(pos.CostBasis)

		pos.CurrentPrice = &price
		pos.MarketValue = &marketValue
		pos.GainLoss = &gainLoss
		if pos.CostBasis.IsPositive() {
			pct := gainLoss.Div(pos.CostBasis).Mul(hundred)
			pos.GainLossPct = &pct
		}

		totalValue = totalValue.Add(marketValue)
	}
	view.TotalValue = totalValue

	targetPcts := s.targetPercentages(userID)

	for i := range view.Positions {
		pos := &view.Positions[i]
		if pos.MarketValue == nil {
			continue
		}

		currentPct := CalculateCurrentAllocationPercentage(*pos.MarketValue, totalValue)
		targetPct := targetPcts[pos.Ticker] // default 0 when no target is set
		delta := CalculateRebalancingAmount(*pos.MarketValue, targetPct, totalValue)

		pos.CurrentAlloc = &currentPct
		pos.TargetAlloc = &targetPct
		pos.RebalancingDelta = &delta
		pos.Status = string(DetermineRebalancingStatus(currentPct, targetPct))
	}
}

func (s *Service) targetPercentages(userID string) map[string]decimal.Decimal {
	targets, err := s.targets.GetByUser(userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load allocation targets, assuming none")
		return map[string]decimal.Decimal{}
	}

	pcts := make(map[string]decimal.Decimal, len(targets))
	for _, t := range targets {
		pcts[t.Ticker] = t.TargetPct
	}
	return pcts
}
