package worker

import (
	"context"
	"log"
	"time"

	"donation-gateway/internal/domain"
	"donation-gateway/internal/repo"
	"donation-gateway/internal/service"
)

const sweepBatchSize = 100

// ReconciliationWorker is the out-of-band sweep over stuck PENDING
// transactions. Two passes per tick: re-confirm rows older than retryAge
// (recovering ghost payments whose submit timed out), and expire rows older
// than expireAge. Both go through the ledger's compare-and-set, so a sweep
// racing a callback or poller can never double-settle a row.
type ReconciliationWorker struct {
	transactions repo.TransactionRepo
	confirmer    service.ConfirmService
	interval     time.Duration
	retryAge     time.Duration
	expireAge    time.Duration
}

func NewReconciliationWorker(
	transactions repo.TransactionRepo,
	confirmer service.ConfirmService,
	interval, retryAge, expireAge time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		transactions: transactions,
		confirmer:    confirmer,
		interval:     interval,
		retryAge:     retryAge,
		expireAge:    expireAge,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log.Println("Reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := rw.Sweep(ctx); err != nil {
				log.Printf("Reconciliation sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one reconciliation pass. Exposed so the worker binary and tests
// can run it without the ticker.
func (rw *ReconciliationWorker) Sweep(ctx context.Context) error {
	stuck, err := rw.transactions.FindStuckPending(ctx, rw.retryAge, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, txn := range stuck {
		if time.Since(txn.CreatedAt) > rw.expireAge {
			status, err := rw.confirmer.Expire(ctx, txn.Reference)
			if err != nil {
				log.Printf("Failed to expire %s: %v", txn.Reference, err)
				continue
			}
			log.Printf("Transaction %s aged out -> %s", txn.Reference, status)
			continue
		}

		status, err := rw.confirmer.Confirm(ctx, txn.Reference)
		if err != nil {
			// Gateway unreachable or similar; the next sweep retries.
			log.Printf("Failed to reconcile %s: %v", txn.Reference, err)
			continue
		}
		if status == domain.TransactionConfirmed {
			log.Printf("Recovered ghost payment %s -> CONFIRMED", txn.Reference)
		} else if status != domain.TransactionPending {
			log.Printf("Settled stuck transaction %s -> %s", txn.Reference, status)
		}
	}
	return nil
}
