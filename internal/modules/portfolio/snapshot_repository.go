package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// SnapshotRepository persists daily portfolio summaries.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repository", "snapshots").Logger(),
	}
}

// Save upserts a snapshot; re-running the job on the same day overwrites.
func (r *SnapshotRepository) Save(snap domain.PortfolioSnapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots (user_id, date, total_value, cost_basis, position_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			total_value = excluded.total_value,
			cost_basis = excluded.cost_basis,
			position_count = excluded.position_count
	`, snap.UserID, snap.Date, snap.TotalValue.String(), snap.CostBasis.String(), snap.PositionCount)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetByUser returns up to limit snapshots, newest first.
func (r *SnapshotRepository) GetByUser(userID string, limit int) ([]domain.PortfolioSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT user_id, date, total_value, cost_basis, position_count
		FROM portfolio_snapshots
		WHERE user_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.PortfolioSnapshot
	for rows.Next() {
		var (
			snap       domain.PortfolioSnapshot
			totalValue string
			costBasis  string
		)
		if err := rows.Scan(&snap.UserID, &snap.Date, &totalValue, &costBasis, &snap.PositionCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		if snap.TotalValue, err = decimal.NewFromString(totalValue); err != nil {
			return nil, fmt.Errorf("invalid total_value %q: %w", totalValue, err)
		}
		if snap.CostBasis, err = decimal.NewFromString(costBasis); err != nil {
			return nil, fmt.Errorf("invalid cost_basis %q: %w", costBasis, err)
		}

		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
