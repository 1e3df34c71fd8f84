// Command billingd is the periodic side of the invoice state machine: it
// rolls open invoices to closed and closed or partially paid invoices to
// overdue on their calendar days, and sweeps account balances for drift.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/logger"
	"moneta/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	audit := services.NewAuditService(db)
	accounts := services.NewAccountService(db, audit)
	billing := services.NewBillingCycleService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("billingd started, interval %s", cfg.BillingInterval)

	ticker := time.NewTicker(cfg.BillingInterval)
	defer ticker.Stop()

	// Run one cycle immediately so a restart does not delay transitions
	// by a full interval.
	runCycle(ctx, cfg, billing, accounts)

	for {
		select {
		case <-ctx.Done():
			log.Info("billingd shutting down")
			return nil
		case <-ticker.C:
			runCycle(ctx, cfg, billing, accounts)
		}
	}
}

func runCycle(ctx context.Context, cfg *config.Config, billing services.BillingCycleServicer, accounts services.AccountServicer) {
	log := logger.Get()

	opCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	report, err := billing.RollStatuses(opCtx, time.Now())
	if err != nil {
		log.Errorw("billing cycle roll failed", "error", err)
	} else if report.Closed > 0 || report.Overdue > 0 {
		log.Infow("billing cycle rolled", "closed", report.Closed, "overdue", report.Overdue)
	}

	reports, err := accounts.ReconcileAll(opCtx, true)
	if err != nil {
		log.Errorw("balance reconciliation sweep failed", "error", err)
		return
	}
	for i := range reports {
		if reports[i].Repaired {
			log.Warnw("account balance repaired during sweep",
				"account_id", reports[i].AccountID,
				"drift", reports[i].Drift,
			)
		}
	}
}
