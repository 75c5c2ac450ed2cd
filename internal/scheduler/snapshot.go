package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/domain"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
)

// SnapshotJob records a daily value summary per user so the portfolio's
// growth can be charted without replaying price history.
type SnapshotJob struct {
	log          zerolog.Logger
	portfolio    *portfolio.Service
	transactions *portfolio.TransactionRepository
	snapshots    *portfolio.SnapshotRepository
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(
	portfolioService *portfolio.Service,
	transactions *portfolio.TransactionRepository,
	snapshots *portfolio.SnapshotRepository,
	log zerolog.Logger,
) *SnapshotJob {
	return &SnapshotJob{
		log:          log.With().Str("job", "snapshot").Logger(),
		portfolio:    portfolioService,
		transactions: transactions,
		snapshots:    snapshots,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "snapshot"
}

// Run snapshots every user with recorded transactions
func (j *SnapshotJob) Run(ctx context.Context) error {
	users, err := j.transactions.DistinctUsers()
	if err != nil {
		return err
	}

	date := time.Now().UTC().Format("2006-01-02")
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}

		view, err := j.portfolio.GetPositions(ctx, userID)
		if err != nil {
			j.log.Error().Err(err).Str("user", userID).Msg("Failed to compute positions for snapshot")
			continue
		}

		snap := domain.PortfolioSnapshot{
			UserID:        userID,
			Date:          date,
			TotalValue:    view.TotalValue,
			CostBasis:     view.TotalCostBasis,
			PositionCount: len(view.Positions),
		}
		if err := j.snapshots.Save(snap); err != nil {
			j.log.Error().Err(err).Str("user", userID).Msg("Failed to save snapshot")
			continue
		}

		j.log.Debug().
			Str("user", userID).
			Str("total_value", view.TotalValue.String()).
			Int("positions", len(view.Positions)).
			Msg("Snapshot saved")
	}

	j.log.Info().Int("users", len(users)).Msg("Snapshot run completed")
	return nil
}
