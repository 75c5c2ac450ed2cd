package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

const (
	quoteURL  = "https://query1.finance.yahoo.com/v7/finance/quote"
	chartURL  = "https://query1.finance.yahoo.com/v8/finance/chart/"
	searchURL = "https://query1.finance.yahoo.com/v1/finance/search"

	maxRetries = 3
)

// periodToRange maps our lookback periods onto Yahoo chart API ranges.
var periodToRange = map[string]string{
	"1M": "1mo",
	"3M": "3mo",
	"6M": "6mo",
	"1Y": "1y",
}

// Client is a Yahoo Finance API client
type Client struct {
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetCurrentPrices fetches the latest market price for each ticker in one
// quote request. Tickers with no usable price are simply absent from the
// result map; callers decide whether that is fatal.
func (c *Client) GetCurrentPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	params := url.Values{}
	params.Add("symbols", strings.Join(tickers, ","))
	params.Add("fields", "symbol,regularMarketPrice,currency")

	body, err := c.getWithRetry(ctx, quoteURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteResponse.Error)
	}

	prices := make(map[string]decimal.Decimal, len(result.QuoteResponse.Result))
	for _, quote := range result.QuoteResponse.Result {
		if quote.RegularMarketPrice <= 0 {
			c.log.Warn().Str("symbol", quote.Symbol).Msg("Quote has no usable price, skipping")
			continue
		}
		prices[strings.ToUpper(quote.Symbol)] = decimal.NewFromFloat(quote.RegularMarketPrice)
	}

	return prices, nil
}

// GetHistoricalPrices fetches daily closes for a ticker over a period
// (1M, 3M, 6M, 1Y) via the chart API, oldest first.
func (c *Client) GetHistoricalPrices(ctx context.Context, ticker, period string) ([]domain.PricePoint, error) {
	chartRange, ok := periodToRange[strings.ToUpper(period)]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", chartRange)

	body, err := c.getWithRetry(ctx, chartURL+url.PathEscape(ticker)+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		c.log.Warn().Str("ticker", ticker).Msg("No historical data returned")
		return []domain.PricePoint{}, nil
	}

	chartData := result.Chart.Result[0]
	closes := chartData.Indicators.Quote[0].Close

	points := make([]domain.PricePoint, 0, len(chartData.Timestamp))
	for i, ts := range chartData.Timestamp {
		// Yahoo pads holidays and halts with zeroed entries.
		if i >= len(closes) || closes[i] <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: decimal.NewFromFloat(closes[i]),
		})
	}

	c.log.Debug().
		Str("ticker", ticker).
		Str("period", period).
		Int("count", len(points)).
		Msg("Fetched historical prices")

	return points, nil
}

// Search queries Yahoo Finance for instruments matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Security, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("quotesCount", "10")
	params.Add("newsCount", "0")

	body, err := c.getWithRetry(ctx, searchURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	securities := make([]domain.Security, 0, len(result.Quotes))
	for _, quote := range result.Quotes {
		if quote.Symbol == "" {
			continue
		}
		name := quote.LongName
		if name == "" {
			name = quote.ShortName
		}
		securities = append(securities, domain.Security{
			Ticker:   strings.ToUpper(quote.Symbol),
			Name:     name,
			Exchange: quote.Exchange,
		})
	}

	return securities, nil
}

// getWithRetry issues a GET with browser headers, retrying transient failures
// with exponential backoff. Cancellation interrupts both the request and the
// backoff sleep.
func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Warn().Err(lastErr).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Request failed, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}

		body, err := c.get(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Yahoo rejects requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
