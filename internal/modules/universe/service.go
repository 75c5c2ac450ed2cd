package universe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// MarketData is the external quote provider consumed by this module.
type MarketData interface {
	GetCurrentPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
	GetHistoricalPrices(ctx context.Context, ticker, period string) ([]domain.PricePoint, error)
	Search(ctx context.Context, query string) ([]domain.Security, error)
}

// periodTradingDays maps a lookback period to the number of daily closes it
// should contain.
var periodTradingDays = map[string]int{
	"1M": 21,
	"3M": 63,
	"6M": 126,
	"1Y": 252,
}

// Service serves the security catalog and price data, backed by the local
// history store with the market data provider as fallback.
type Service struct {
	securities *SecurityRepository
	history    *HistoryDB
	market     MarketData
	log        zerolog.Logger
}

// NewService creates a new universe service
func NewService(
	securities *SecurityRepository,
	history *HistoryDB,
	market MarketData,
	log zerolog.Logger,
) *Service {
	return &Service{
		securities: securities,
		history:    history,
		market:     market,
		log:        log.With().Str("service", "universe").Logger(),
	}
}

// Securities returns catalog entries.
func (s *Service) Securities(activeOnly bool) ([]domain.Security, error) {
	return s.securities.GetAll(activeOnly)
}

// GetSecurity returns one catalog entry.
func (s *Service) GetSecurity(ticker string) (domain.Security, error) {
	return s.securities.GetByTicker(ticker)
}

// AddSecurity validates and stores a catalog entry.
func (s *Service) AddSecurity(sec domain.Security) error {
	if strings.TrimSpace(sec.Ticker) == "" {
		return &domain.ValidationError{Field: "ticker", Reason: "cannot be empty"}
	}
	sec.Ticker = strings.ToUpper(strings.TrimSpace(sec.Ticker))
	sec.Active = true
	return s.securities.Upsert(sec)
}

// Exists reports whether a ticker is in the catalog.
func (s *Service) Exists(ticker string) (bool, error) {
	return s.securities.Exists(ticker)
}

// Search queries the market data provider for matching instruments.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Security, error) {
	return s.market.Search(ctx, query)
}

// GetCurrentPrices delegates to the market data provider.
func (s *Service) GetCurrentPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	return s.market.GetCurrentPrices(ctx, tickers)
}

// GetHistoricalPrices serves a price series from the local store, falling
// back to the provider (and populating the store) when the series is absent
// or too short for the requested period.
func (s *Service) GetHistoricalPrices(ctx context.Context, ticker, period string) ([]domain.PricePoint, error) {
	wanted, ok := periodTradingDays[strings.ToUpper(period)]
	if !ok {
		return nil, &domain.ValidationError{Field: "period", Reason: "must be one of 1M, 3M, 6M, 1Y"}
	}

	points, err := s.history.GetDailyPrices(ticker, wanted)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("History store read failed, falling back to provider")
	}
	// A series is considered usable when it covers most of the period;
	// markets close on holidays, so an exact count is never expected.
	if len(points) >= wanted*9/10 {
		return points, nil
	}

	fetched, err := s.market.GetHistoricalPrices(ctx, ticker, period)
	if err != nil {
		if len(points) > 0 {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("Provider fetch failed, serving stale history")
			return points, nil
		}
		return nil, fmt.Errorf("failed to fetch history for %s: %w", ticker, err)
	}

	if err := s.history.SaveDailyPrices(ticker, fetched); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache price history")
	}

	return fetched, nil
}

// RefreshPrices re-fetches and stores the 1Y series for every active
// security. Used by the scheduled price sync job.
func (s *Service) RefreshPrices(ctx context.Context) error {
	securities, err := s.securities.GetAll(true)
	if err != nil {
		return fmt.Errorf("failed to list active securities: %w", err)
	}

	var failed []string
	for _, sec := range securities {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		points, err := s.market.GetHistoricalPrices(ctx, sec.Ticker, "1Y")
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", sec.Ticker).Msg("Price refresh failed for ticker")
			failed = append(failed, sec.Ticker)
			continue
		}
		if err := s.history.SaveDailyPrices(sec.Ticker, points); err != nil {
			s.log.Error().Err(err).Str("ticker", sec.Ticker).Msg("Failed to store refreshed prices")
			failed = append(failed, sec.Ticker)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("price refresh incomplete for %d securities: %s",
			len(failed), strings.Join(failed, ", "))
	}

	s.log.Info().Int("securities", len(securities)).Msg("Price refresh completed")
	return nil
}
