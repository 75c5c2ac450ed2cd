package risk

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
	"github.com/aristath/portfolio-advisor/pkg/formulas"
)

// PositionSource supplies derived positions.
type PositionSource interface {
	GetPositions(ctx context.Context, userID string) (portfolio.PortfolioView, error)
}

// HistorySource supplies historical closing prices.
type HistorySource interface {
	GetHistoricalPrices(ctx context.Context, ticker, period string) ([]domain.PricePoint, error)
}

// Config holds the risk computation parameters.
type Config struct {
	BenchmarkTicker string
	RiskFreeRate    decimal.Decimal // annual, e.g. 0.02 for 2%
}

// Service computes portfolio risk metrics from price history.
type Service struct {
	positions PositionSource
	history   HistorySource
	cfg       Config
	log       zerolog.Logger
}

// NewService creates a new risk service
func NewService(positions PositionSource, history HistorySource, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		history:   history,
		cfg:       cfg,
		log:       log.With().Str("service", "risk").Logger(),
	}
}

// ComputeMetrics derives volatility, beta, Sharpe ratio and annualized return
// for the user's portfolio over the given period. Portfolios without
// positions get the defined empty value rather than an error.
func (s *Service) ComputeMetrics(ctx context.Context, userID, period string) (domain.RiskMetrics, error) {
	view, err := s.positions.GetPositions(ctx, userID)
	if err != nil {
		return domain.RiskMetrics{}, fmt.Errorf("failed to get positions: %w", err)
	}

	if len(view.Positions) == 0 {
		return domain.EmptyRiskMetrics(period, s.cfg.BenchmarkTicker), nil
	}

	portfolioValues, dates, err := s.portfolioValueSeries(ctx, view.Positions, period)
	if err != nil {
		return domain.RiskMetrics{}, err
	}
	if len(portfolioValues) < 2 {
		s.log.Warn().Str("user", userID).Msg("Not enough overlapping history, returning empty risk metrics")
		return domain.EmptyRiskMetrics(period, s.cfg.BenchmarkTicker), nil
	}

	portfolioReturns := formulas.LogReturns(portfolioValues)

	dailyVol := formulas.StdDev(portfolioReturns)
	annualVol := formulas.AnnualizeVolatility(dailyVol, formulas.TradingDaysPerYear)
	annualReturn := formulas.AnnualizedReturn(portfolioReturns, formulas.TradingDaysPerYear)
	riskFree, _ := s.cfg.RiskFreeRate.Float64()
	sharpe := formulas.SharpeRatio(annualReturn, riskFree, annualVol)

	maxDrawdown := 0.0
	if dd := formulas.MaxDrawdown(portfolioValues); dd != nil {
		maxDrawdown = *dd
	}

	beta, err := s.betaAgainstBenchmark(ctx, portfolioReturns, dates, period)
	if err != nil {
		// Beta is the only metric needing the benchmark; degrade instead
		// of failing the whole response.
		s.log.Warn().Err(err).Str("benchmark", s.cfg.BenchmarkTicker).Msg("Benchmark unavailable, beta set to 0")
		beta = 0
	}

	return domain.RiskMetrics{
		AnnualizedVolatility: decimal.NewFromFloat(annualVol).Round(6),
		Beta:                 decimal.NewFromFloat(beta).Round(6),
		SharpeRatio:          decimal.NewFromFloat(sharpe).Round(6),
		AnnualizedReturn:     decimal.NewFromFloat(annualReturn).Round(6),
		MaxDrawdown:          decimal.NewFromFloat(maxDrawdown).Round(6),
		Period:               period,
		BenchmarkTicker:      s.cfg.BenchmarkTicker,
	}, nil
}

// portfolioValueSeries builds the daily portfolio value over the dates where
// every held ticker has a close. Restricting to the common dates keeps the
// return series consistent across holdings.
func (s *Service) portfolioValueSeries(
	ctx context.Context,
	positions []domain.Position,
	period string,
) ([]float64, []string, error) {
	type series struct {
		shares float64
		closes map[string]float64
	}

	all := make([]series, 0, len(positions))
	var commonDates map[string]bool

	for _, pos := range positions {
		points, err := s.history.GetHistoricalPrices(ctx, pos.Ticker, period)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get history for %s: %w", pos.Ticker, err)
		}

		closes := make(map[string]float64, len(points))
		dates := make(map[string]bool, len(points))
		for _, p := range points {
			key := p.Date.Format("2006-01-02")
			closes[key] = p.Close.InexactFloat64()
			dates[key] = true
		}

		if commonDates == nil {
			commonDates = dates
		} else {
			for date := range commonDates {
				if !dates[date] {
					delete(commonDates, date)
				}
			}
		}

		all = append(all, series{shares: pos.TotalShares.InexactFloat64(), closes: closes})
	}

	ordered := make([]string, 0, len(commonDates))
	for date := range commonDates {
		ordered = append(ordered, date)
	}
	sort.Strings(ordered)

	values := make([]float64, len(ordered))
	for i, date := range ordered {
		total := 0.0
		for _, ser := range all {
			total += ser.shares * ser.closes[date]
		}
		values[i] = total
	}

	return values, ordered, nil
}

// betaAgainstBenchmark aligns the benchmark series to the portfolio dates and
// computes beta over the overlapping returns.
func (s *Service) betaAgainstBenchmark(
	ctx context.Context,
	portfolioReturns []float64,
	dates []string,
	period string,
) (float64, error) {
	if s.cfg.BenchmarkTicker == "" {
		return 0, nil
	}

	points, err := s.history.GetHistoricalPrices(ctx, s.cfg.BenchmarkTicker, period)
	if err != nil {
		return 0, err
	}

	closes := make(map[string]float64, len(points))
	for _, p := range points {
		closes[p.Date.Format("2006-01-02")] = p.Close.InexactFloat64()
	}

	benchValues := make([]float64, 0, len(dates))
	for _, date := range dates {
		if v, ok := closes[date]; ok {
			benchValues = append(benchValues, v)
		}
	}
	if len(benchValues) < 2 {
		return 0, fmt.Errorf("benchmark %s has no overlap with portfolio dates", s.cfg.BenchmarkTicker)
	}

	benchReturns := formulas.LogReturns(benchValues)
	if len(benchReturns) != len(portfolioReturns) {
		// Trim to the shorter series; log returns shift indices by one, so
		// a small mismatch only costs a few observations.
		n := len(benchReturns)
		if len(portfolioReturns) < n {
			n = len(portfolioReturns)
		}
		benchReturns = benchReturns[len(benchReturns)-n:]
		portfolioReturns = portfolioReturns[len(portfolioReturns)-n:]
	}

	return formulas.Beta(portfolioReturns, benchReturns), nil
}

// supportedPeriods guards the handler input.
var supportedPeriods = map[string]bool{"1M": true, "3M": true, "6M": true, "1Y": true}

// ValidatePeriod checks a period string before computation.
func ValidatePeriod(period string) error {
	if !supportedPeriods[period] {
		return &domain.ValidationError{Field: "period", Reason: "must be one of 1M, 3M, 6M, 1Y"}
	}
	return nil
}
