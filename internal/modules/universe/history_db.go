package universe

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for per-ticker history files
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// HistoryDB stores daily closing prices, one SQLite file per ticker. Keeping
// tickers in separate files keeps the hot main database small and lets the
// refresh job rewrite a series atomically per symbol.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// GetDailyPrices fetches up to limit daily closes for a ticker, oldest first.
func (h *HistoryDB) GetDailyPrices(ticker string, limit int) ([]domain.PricePoint, error) {
	db, err := h.openHistoryDB(ticker, false)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no history recorded yet
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT date, close_price
		FROM daily_prices
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var (
			date       string
			closePrice string
		)
		if err := rows.Scan(&date, &closePrice); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		point := domain.PricePoint{}
		if point.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("invalid price date %q: %w", date, err)
		}
		if point.Close, err = decimal.NewFromString(closePrice); err != nil {
			return nil, fmt.Errorf("invalid close price %q: %w", closePrice, err)
		}

		points = append(points, point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Reverse into chronological order for the statistics consumers.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// SaveDailyPrices upserts a batch of daily closes for a ticker.
func (h *HistoryDB) SaveDailyPrices(ticker string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	db, err := h.openHistoryDB(ticker, true)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (date, close_price)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET close_price = excluded.close_price
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, point := range points {
		if _, err := stmt.Exec(point.Date.Format("2006-01-02"), point.Close.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert daily price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history transaction: %w", err)
	}

	h.log.Debug().Str("ticker", ticker).Int("points", len(points)).Msg("Saved daily prices")
	return nil
}

// openHistoryDB opens the per-ticker database file. When create is false and
// the file does not exist, (nil, nil) is returned so callers can treat the
// series as simply absent.
func (h *HistoryDB) openHistoryDB(ticker string, create bool) (*sql.DB, error) {
	path := filepath.Join(h.historyDir, historyFileName(ticker))

	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
	}

	if err := os.MkdirAll(h.historyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", ticker, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			date TEXT PRIMARY KEY,
			close_price TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure history schema: %w", err)
	}

	return db, nil
}

// historyFileName sanitizes a ticker into a safe file name.
func historyFileName(ticker string) string {
	safe := strings.ToUpper(ticker)
	safe = strings.ReplaceAll(safe, "/", "_")
	safe = strings.ReplaceAll(safe, "..", "_")
	return safe + ".db"
}
