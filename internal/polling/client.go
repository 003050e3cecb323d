package polling

import (
	"context"
	"log"
	"time"

	"donation-gateway/internal/domain"
)

// Confirmer is the slice of the confirmation service the poller needs.
type Confirmer interface {
	Confirm(ctx context.Context, reference string) (domain.TransactionStatus, error)
}

// Result is what the poller surfaces to the presentation layer. Settled is
// false when the retry budget ran out while the transaction was still
// PENDING: the outcome is "unconfirmed, will be resolved asynchronously",
// not a failure.
type Result struct {
	Status  domain.TransactionStatus
	Settled bool
}

// Poller is the caller-side bounded retry loop invoked after initiate returns
// a reference. Single-goroutine and cooperative: cancelling the context stops
// the loop and releases nothing server-side.
type Poller struct {
	confirmer   Confirmer
	interval    time.Duration
	maxAttempts int
}

func NewPoller(confirmer Confirmer, interval time.Duration, maxAttempts int) *Poller {
	return &Poller{
		confirmer:   confirmer,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Wait polls until the transaction reaches a terminal state or the attempt
// budget is exhausted. Transient confirmation errors consume an attempt and
// the loop keeps going; the reconciliation itself is idempotent.
func (p *Poller) Wait(ctx context.Context, reference string) (Result, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, err := p.confirmer.Confirm(ctx, reference)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Status: domain.TransactionPending}, ctx.Err()
			}
			log.Printf("confirm attempt %d/%d for %s: %v", attempt, p.maxAttempts, reference, err)
		} else if status != domain.TransactionPending {
			return Result{Status: status, Settled: true}, nil
		}

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return Result{Status: domain.TransactionPending}, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return Result{Status: domain.TransactionPending, Settled: false}, nil
}
