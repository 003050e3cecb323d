package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"donation-gateway/internal/config"
	"donation-gateway/internal/database"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/repo"
	"donation-gateway/internal/service"
	"donation-gateway/internal/worker"
)

// Standalone reconciliation sweep: run this next to the API when callbacks
// are unreliable or the API runs with the embedded sweep disabled.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.NewPostgres(cfg.DSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	transactionRepo := repo.NewTransactionRepo(db)
	donationRepo := repo.NewDonationRepo(db)
	gatewayClient := gateway.NewClient(cfg.Gateway)
	confirmService := service.NewConfirmService(transactionRepo, donationRepo, gatewayClient, cfg.PendingGrace)

	sweep := worker.NewReconciliationWorker(
		transactionRepo, confirmService,
		cfg.SweepInterval, cfg.SweepRetryAge, cfg.SweepExpire,
	)

	log.Println("Reconciliation worker running. Press CTRL+C to exit.")
	sweep.Run(ctx)
}
