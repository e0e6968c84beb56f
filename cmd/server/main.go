package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/config"
	"github.com/lungfish-labs/simex/internal/database"
	"github.com/lungfish-labs/simex/internal/modules/catalog"
	"github.com/lungfish-labs/simex/internal/modules/ledger"
	"github.com/lungfish-labs/simex/internal/modules/portfolio"
	"github.com/lungfish-labs/simex/internal/modules/settlement"
	"github.com/lungfish-labs/simex/internal/modules/trading"
	"github.com/lungfish-labs/simex/internal/oracle"
	"github.com/lungfish-labs/simex/internal/scheduler"
	"github.com/lungfish-labs/simex/internal/server"
	"github.com/lungfish-labs/simex/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	// Money amounts serialize as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().Msg("Starting simex")

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

	// Seed the asset catalog
	catalogRepo := catalog.NewRepository(db.Conn(), log)
	if err := catalogRepo.Seed(catalog.DefaultAssets()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed asset catalog")
	}

	// Core state
	ledgerStore := ledger.NewStore(db.Conn(), log)
	tradeRepo := trading.NewTradeRepository(db.Conn(), log)
	prices := oracle.NewSimulated(time.Now().UnixNano())

	if cfg.SeedDemoAccount {
		seedDemoAccount(ledgerStore, cfg, log)
	}

	// Settlement enrichment worker
	settlementSvc := settlement.NewService(tradeRepo, settlement.SimRecorder{}, 256, log)
	settlementSvc.Start()
	defer settlementSvc.Stop()

	// Trade execution
	executor := trading.NewExecutor(catalogRepo, ledgerStore, prices, settlementSvc, cfg.SlippagePct, log)

	// Portfolio valuation
	valuator := portfolio.NewValuator(ledgerStore, prices, log)
	snapshotRepo := portfolio.NewSnapshotRepository(db.Conn(), log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	snapshotJob := portfolio.NewSnapshotJob(ledgerStore, valuator, snapshotRepo, log)
	if err := sched.AddJob("0 5 0 * * *", snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	sweepJob := settlement.NewSweepJob(settlementSvc, log)
	if err := sched.AddJob("@every 1m", sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register settlement sweep job")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Log:       log,
		Auth:      server.NewAuth(ledgerStore, log),
		Catalog:   catalog.NewHandlers(catalogRepo, log),
		Trading:   trading.NewHandlers(executor, tradeRepo, log),
		Portfolio: portfolio.NewHandlers(valuator, snapshotRepo, log),
		Prices:    prices,
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

// seedDemoAccount ensures a usable account exists on first boot. The
// token is logged once so local clients can authenticate immediately.
func seedDemoAccount(store *ledger.Store, cfg *config.Config, log zerolog.Logger) {
	token := cfg.DemoAccountToken
	if token != "" {
		if _, err := store.GetAccountByToken(token); err == nil {
			return
		}
	} else {
		token = uuid.New().String()
	}

	account, err := store.CreateAccount("demo", token, cfg.StartingBalance)
	if err != nil {
		// Most likely an earlier boot already created it
		log.Warn().Err(err).Msg("Demo account not created")
		return
	}

	log.Info().
		Str("account_id", account.ID).
		Str("api_token", token).
		Str("starting_balance", cfg.StartingBalance.String()).
		Msg("Demo account ready")
}
