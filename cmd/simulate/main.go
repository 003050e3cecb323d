package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"donation-gateway/internal/database"
	"donation-gateway/internal/domain"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/polling"
	"donation-gateway/internal/repo"
	"donation-gateway/internal/service"
	"donation-gateway/internal/worker"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
)

// Drives 20 donation attempts through the orchestrator and poller against the
// mock gateway, then runs the sweep to show ghost-payment recovery: attempts
// whose submit "timed out" are still ledgered PENDING and get confirmed by
// the reconciliation pass.
func main() {
	ctx := context.Background()

	db, err := database.NewPostgres(dsnFromEnv())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	transactionRepo := repo.NewTransactionRepo(db)
	donationRepo := repo.NewDonationRepo(db)
	mockGateway := gateway.NewMock()

	paymentService := service.NewPaymentService(transactionRepo, donationRepo, mockGateway)
	confirmService := service.NewConfirmService(transactionRepo, donationRepo, mockGateway, 0)
	poller := polling.NewPoller(confirmService, 200*time.Millisecond, 3)

	now := time.Now()
	campaign := &domain.Donation{
		ID:           uuid.New(),
		Title:        "Simulation campaign",
		TargetAmount: 1_000_000,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := donationRepo.Create(ctx, campaign); err != nil {
		log.Fatalf("seed campaign: %v", err)
	}

	fmt.Println("--- STARTING SIMULATION (20 DONATIONS) ---")
	for i := 0; i < 20; i++ {
		amount := float64(rand.IntN(9900)+100) / 100

		fmt.Printf("[%d] Initiating %.2f ... ", i+1, amount)
		result, err := paymentService.Initiate(ctx, service.InitiateRequest{
			Amount:     amount,
			DonationID: campaign.ID,
			Method:     domain.MethodMobileMoney,
			Provider:   "mtn",
			Customer:   domain.CustomerInfo{Name: "Sim Donor", Phone: "670000000"},
		})
		if errors.Is(err, domain.ErrGatewayRejected) {
			fmt.Println("REJECTED (no ledger row)")
			continue
		}
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		outcome, err := poller.Wait(ctx, result.Reference)
		if err != nil {
			fmt.Printf("poll error: %v\n", err)
			continue
		}
		if outcome.Settled {
			fmt.Printf("settled as %s\n", outcome.Status)
		} else {
			fmt.Printf("still %s after poll budget (reconciler will resolve)\n", outcome.Status)
		}

		// Query the ledger again to show the actual stored state.
		fresh, _ := transactionRepo.FindByReference(ctx, result.Reference)
		fmt.Printf("    -> DB Status: %s\n", fresh.Status)
		fmt.Println("---------------------------------------------------")
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("--- RUNNING RECONCILIATION SWEEP ---")
	sweep := worker.NewReconciliationWorker(transactionRepo, confirmService, time.Second, 0, 24*time.Hour)
	if err := sweep.Sweep(ctx); err != nil {
		log.Fatalf("sweep: %v", err)
	}

	total, _ := donationRepo.FindById(ctx, campaign.ID)
	fmt.Printf("Campaign raised: %.2f\n", total.CurrentAmount)
}

func dsnFromEnv() string {
	getEnv := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASS", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "donations"),
		getEnv("DB_SSLMODE", "disable"),
	)
}
