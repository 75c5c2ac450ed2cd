package allocation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Repository persists per-user allocation targets.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation target repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "allocation_targets").Logger(),
	}
}

// GetByUser returns all targets for a user.
func (r *Repository) GetByUser(userID string) ([]domain.AllocationTarget, error) {
	rows, err := r.db.Query(`
		SELECT ticker, target_pct, updated_at
		FROM allocation_targets
		WHERE user_id = ?
		ORDER BY ticker
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.AllocationTarget
	for rows.Next() {
		var (
			target    domain.AllocationTarget
			pct       string
			updatedAt string
		)
		if err := rows.Scan(&target.Ticker, &pct, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation target: %w", err)
		}

		if target.TargetPct, err = decimal.NewFromString(pct); err != nil {
			return nil, fmt.Errorf("invalid target_pct %q: %w", pct, err)
		}
		if target.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
		}

		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation targets: %w", err)
	}

	return targets, nil
}

// Upsert inserts or replaces the target for one ticker.
func (r *Repository) Upsert(userID string, target domain.AllocationTarget) error {
	_, err := r.db.Exec(`
		INSERT INTO allocation_targets (user_id, ticker, target_pct, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, ticker) DO UPDATE SET
			target_pct = excluded.target_pct,
			updated_at = excluded.updated_at
	`, userID, target.Ticker, target.TargetPct.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert allocation target: %w", err)
	}
	return nil
}

// Delete removes the target for one ticker.
func (r *Repository) Delete(userID, ticker string) error {
	_, err := r.db.Exec(`
		DELETE FROM allocation_targets WHERE user_id = ? AND ticker = ?
	`, userID, ticker)
	if err != nil {
		return fmt.Errorf("failed to delete allocation target: %w", err)
	}
	return nil
}
