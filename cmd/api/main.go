package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donation-gateway/internal/config"
	"donation-gateway/internal/database"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/repo"
	"donation-gateway/internal/server"
	"donation-gateway/internal/service"
	"donation-gateway/internal/worker"
)

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

	paymentService := service.NewPaymentService(transactionRepo, donationRepo, gatewayClient)
	confirmService := service.NewConfirmService(transactionRepo, donationRepo, gatewayClient, cfg.PendingGrace)

	// Embedded sweep: recovers ghost payments and expires very old PENDING
	// rows. Can also run standalone via cmd/worker.
	sweep := worker.NewReconciliationWorker(
		transactionRepo, confirmService,
		cfg.SweepInterval, cfg.SweepRetryAge, cfg.SweepExpire,
	)
	go sweep.Run(ctx)

	engine := server.New(paymentService, confirmService, transactionRepo, database.New(db))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
		os.Exit(1)
	}
}
