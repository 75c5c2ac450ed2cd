package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/clients/yahoo"
	"github.com/aristath/portfolio-advisor/internal/config"
	"github.com/aristath/portfolio-advisor/internal/database"
	"github.com/aristath/portfolio-advisor/internal/modules/allocation"
	"github.com/aristath/portfolio-advisor/internal/modules/insights"
	"github.com/aristath/portfolio-advisor/internal/modules/portfolio"
	"github.com/aristath/portfolio-advisor/internal/modules/rebalancing"
	"github.com/aristath/portfolio-advisor/internal/modules/risk"
	"github.com/aristath/portfolio-advisor/internal/modules/universe"
	"github.com/aristath/portfolio-advisor/internal/scheduler"
	"github.com/aristath/portfolio-advisor/internal/server"
	"github.com/aristath/portfolio-advisor/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Portfolio Advisor")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// External market data client
	yahooClient := yahoo.NewClient(log)

	// Repositories
	transactionRepo := portfolio.NewTransactionRepository(db.Conn(), log)
	snapshotRepo := portfolio.NewSnapshotRepository(db.Conn(), log)
	targetRepo := allocation.NewRepository(db.Conn(), log)
	securityRepo := universe.NewSecurityRepository(db.Conn(), log)
	historyDB := universe.NewHistoryDB(cfg.HistoryDir, log)

	// Services
	universeService := universe.NewService(securityRepo, historyDB, yahooClient, log)
	allocationService := allocation.NewService(targetRepo, universeService, log)
	portfolioService := portfolio.NewService(transactionRepo, snapshotRepo, targetRepo, universeService, universeService, log)
	rebalancingService := rebalancing.NewService(portfolioService, universeService, nil, rebalancing.DefaultOptions(), log)
	riskService := risk.NewService(portfolioService, universeService, risk.Config{
		BenchmarkTicker: cfg.BenchmarkTicker,
		RiskFreeRate:    cfg.RiskFreeRate,
	}, log)
	insightsService := insights.NewService(portfolioService, portfolioService, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, cfg, db, universeService, portfolioService, transactionRepo, snapshotRepo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DevMode: cfg.DevMode,

		Portfolio:   portfolio.NewHandler(portfolioService, log),
		Rebalancing: rebalancing.NewHandler(rebalancingService, log),
		Allocation:  allocation.NewHandler(allocationService, log),
		Universe:    universe.NewHandler(universeService, log),
		Risk:        risk.NewHandler(riskService, log),
		Insights:    insights.NewHandler(insightsService, log),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	db *database.DB,
	universeService *universe.Service,
	portfolioService *portfolio.Service,
	transactionRepo *portfolio.TransactionRepository,
	snapshotRepo *portfolio.SnapshotRepository,
	log zerolog.Logger,
) error {
	// Refresh price history on weekday evenings, after US markets close.
	priceSync := scheduler.NewPriceSyncJob(universeService, log)
	if err := sched.AddJob("0 30 22 * * MON-FRI", priceSync, 10*time.Minute); err != nil {
		return err
	}

	// Snapshot portfolio values daily, after the price sync.
	snapshot := scheduler.NewSnapshotJob(portfolioService, transactionRepo, snapshotRepo, log)
	if err := sched.AddJob("0 0 23 * * *", snapshot, 5*time.Minute); err != nil {
		return err
	}

	healthCheck := scheduler.NewHealthCheckJob(db, cfg.HistoryDir, log)
	return sched.AddJob("@every 6h", healthCheck, 5*time.Minute)
}
