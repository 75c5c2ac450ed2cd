package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/database"
)

// HealthCheckJob verifies SQLite integrity for the main database and the
// per-ticker history files. Corrupted history files are deleted; the next
// price sync rebuilds them from the provider. Main database corruption
// cannot be auto-recovered and is reported as an error.
type HealthCheckJob struct {
	log        zerolog.Logger
	db         *database.DB
	historyDir string
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(db *database.DB, historyDir string, log zerolog.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		log:        log.With().Str("job", "health_check").Logger(),
		db:         db,
		historyDir: historyDir,
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run executes the health check
func (j *HealthCheckJob) Run(ctx context.Context) error {
	startTime := time.Now()

	if err := j.checkDatabaseIntegrity("main", j.db.Conn()); err != nil {
		return fmt.Errorf("main database is corrupted: %w", err)
	}

	j.checkHistoryDatabases(ctx)

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Health check completed")

	return nil
}

// checkHistoryDatabases verifies every per-ticker history file, deleting
// corrupted ones so the price sync can rebuild them. Cancellation stops the
// walk between files.
func (j *HealthCheckJob) checkHistoryDatabases(ctx context.Context) {
	entries, err := os.ReadDir(j.historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			j.log.Debug().Msg("History directory does not exist, skipping")
			return
		}
		j.log.Error().Err(err).Msg("Failed to read history directory")
		return
	}

	corrupted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}

		dbPath := filepath.Join(j.historyDir, entry.Name())
		ticker := strings.TrimSuffix(entry.Name(), ".db")

		if err := j.checkHistoryFile(ticker, dbPath); err != nil {
			corrupted++
			j.log.Warn().Err(err).Str("ticker", ticker).Msg("History database corrupted, deleting for rebuild")

			if err := os.Remove(dbPath); err != nil {
				j.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to delete corrupted history database")
			}
		}
	}

	if corrupted > 0 {
		j.log.Warn().Int("corrupted", corrupted).Msg("History database corruption detected and recovered")
	}
}

func (j *HealthCheckJob) checkHistoryFile(ticker, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer db.Close()

	return j.checkDatabaseIntegrity(ticker, db)
}

// checkDatabaseIntegrity runs SQLite's PRAGMA integrity_check
func (j *HealthCheckJob) checkDatabaseIntegrity(name string, db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	j.log.Debug().Str("database", name).Msg("Database integrity OK")
	return nil
}
