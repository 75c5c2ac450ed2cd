package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/modules/universe"
)

// PriceSyncJob refreshes the local price history for every active security.
type PriceSyncJob struct {
	log      zerolog.Logger
	universe *universe.Service
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(universeService *universe.Service, log zerolog.Logger) *PriceSyncJob {
	return &PriceSyncJob{
		log:      log.With().Str("job", "price_sync").Logger(),
		universe: universeService,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Run executes the price refresh
func (j *PriceSyncJob) Run(ctx context.Context) error {
	startTime := time.Now()
	if err := j.universe.RefreshPrices(ctx); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Price sync completed")

	return nil
}
