package universe

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// SecurityRepository persists the security catalog.
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repository", "securities").Logger(),
	}
}

// GetAll returns catalog entries, optionally restricted to active ones.
func (r *SecurityRepository) GetAll(activeOnly bool) ([]domain.Security, error) {
	query := `SELECT ticker, name, exchange, currency, active, last_updated FROM securities`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY ticker`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var securities []domain.Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, err
		}
		securities = append(securities, sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// GetByTicker returns one catalog entry or domain.ErrSecurityNotFound.
func (r *SecurityRepository) GetByTicker(ticker string) (domain.Security, error) {
	row := r.db.QueryRow(`
		SELECT ticker, name, exchange, currency, active, last_updated
		FROM securities
		WHERE ticker = ?
	`, strings.ToUpper(ticker))

	var (
		sec         domain.Security
		active      int
		lastUpdated string
	)
	err := row.Scan(&sec.Ticker, &sec.Name, &sec.Exchange, &sec.Currency, &active, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Security{}, &domain.NotFoundError{Tickers: []string{ticker}}
	}
	if err != nil {
		return domain.Security{}, fmt.Errorf("failed to get security: %w", err)
	}

	sec.Active = active == 1
	if sec.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
		return domain.Security{}, fmt.Errorf("invalid last_updated %q: %w", lastUpdated, err)
	}

	return sec, nil
}

// Exists reports whether a ticker is present in the catalog.
func (r *SecurityRepository) Exists(ticker string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(1) FROM securities WHERE ticker = ?`,
		strings.ToUpper(ticker)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check security existence: %w", err)
	}
	return count > 0, nil
}

// Upsert inserts or updates a catalog entry.
func (r *SecurityRepository) Upsert(sec domain.Security) error {
	active := 0
	if sec.Active {
		active = 1
	}

	_, err := r.db.Exec(`
		INSERT INTO securities (ticker, name, exchange, currency, active, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			exchange = excluded.exchange,
			currency = excluded.currency,
			active = excluded.active,
			last_updated = excluded.last_updated
	`, strings.ToUpper(sec.Ticker), sec.Name, sec.Exchange, sec.Currency, active,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert security: %w", err)
	}

	return nil
}

func scanSecurity(rows *sql.Rows) (domain.Security, error) {
	var (
		sec         domain.Security
		active      int
		lastUpdated string
	)
	err := rows.Scan(&sec.Ticker, &sec.Name, &sec.Exchange, &sec.Currency, &active, &lastUpdated)
	if err != nil {
		return domain.Security{}, fmt.Errorf("failed to scan security: %w", err)
	}

	sec.Active = active == 1
	if sec.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
		return domain.Security{}, fmt.Errorf("invalid last_updated %q: %w", lastUpdated, err)
	}

	return sec, nil
}
