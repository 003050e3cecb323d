package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"donation-gateway/internal/domain"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/repo"
)

type ConfirmService interface {
	// Confirm reconciles a transaction with the gateway's eventual outcome.
	// Safe to call any number of times, concurrently, from a provider
	// callback and a poller at once: crediting happens at most once, through
	// the ledger's compare-and-set transition.
	Confirm(ctx context.Context, reference string) (domain.TransactionStatus, error)

	// ConfirmByGatewayTxn maps a provider-pushed notification back to a
	// reference via the stored gateway transaction id.
	ConfirmByGatewayTxn(ctx context.Context, gatewayTxnID string) (domain.TransactionStatus, error)

	// Expire moves a very old PENDING transaction to EXPIRED. Used by the
	// sweep; goes through the same CAS so a racing confirmation still wins.
	Expire(ctx context.Context, reference string) (domain.TransactionStatus, error)
}

type confirmService struct {
	transactions repo.TransactionRepo
	donations    repo.DonationRepo
	gateway      gateway.Client

	// pendingGrace is how long a transaction without a gateway transaction id
	// may wait for the provider to show a record before it is failed.
	pendingGrace time.Duration
}

func NewConfirmService(
	transactions repo.TransactionRepo,
	donations repo.DonationRepo,
	gw gateway.Client,
	pendingGrace time.Duration,
) ConfirmService {
	return &confirmService{
		transactions: transactions,
		donations:    donations,
		gateway:      gw,
		pendingGrace: pendingGrace,
	}
}

func (s *confirmService) Confirm(ctx context.Context, reference string) (domain.TransactionStatus, error) {
	txn, err := s.transactions.FindByReference(ctx, reference)
	if err != nil {
		return "", err
	}

	// Terminal rows short-circuit: repeated confirmation calls are idempotent
	// and cheap.
	if txn.IsTerminal() {
		return txn.Status, nil
	}

	var status gateway.Status
	var queryErr error
	if txn.GatewayTxnID != "" {
		status, queryErr = s.gateway.QueryStatus(ctx, txn.GatewayTxnID)
	} else {
		// Ambiguous submission: the original submit timed out. The provider
		// indexes payments by our reference, so ask by that.
		status, queryErr = s.gateway.QueryStatusByReference(ctx, txn.Reference)
	}

	if errors.Is(queryErr, domain.ErrNotFound) {
		// The provider has no record. Inside the grace window the submission
		// may still land; past it, the attempt is considered lost.
		if time.Since(txn.CreatedAt) <= s.pendingGrace {
			return domain.TransactionPending, nil
		}
		return s.transition(ctx, txn.Reference, domain.TransactionFailed, nil)
	}
	if queryErr != nil {
		return "", queryErr
	}

	switch status {
	case gateway.StatusSuccessful:
		return s.transition(ctx, txn.Reference, domain.TransactionConfirmed,
			func(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
				return s.donations.IncrementRaised(ctx, tx, t.DonationID, t.Amount)
			})
	case gateway.StatusFailed:
		return s.transition(ctx, txn.Reference, domain.TransactionFailed, nil)
	default:
		// Still pending on the provider side: no mutation.
		return domain.TransactionPending, nil
	}
}

func (s *confirmService) ConfirmByGatewayTxn(ctx context.Context, gatewayTxnID string) (domain.TransactionStatus, error) {
	txn, err := s.transactions.FindByGatewayTxn(ctx, gatewayTxnID)
	if err != nil {
		return "", err
	}
	return s.Confirm(ctx, txn.Reference)
}

func (s *confirmService) Expire(ctx context.Context, reference string) (domain.TransactionStatus, error) {
	return s.transition(ctx, reference, domain.TransactionExpired, nil)
}

// transition applies PENDING -> to and absorbs a lost race: if another caller
// already moved the row, the stored terminal status is the answer.
func (s *confirmService) transition(ctx context.Context, reference string, to domain.TransactionStatus, mutate repo.TransitionMutator) (domain.TransactionStatus, error) {
	txn, err := s.transactions.Transition(ctx, reference, domain.TransactionPending, to, mutate)
	if errors.Is(err, domain.ErrInvalidTransition) {
		stored, readErr := s.transactions.FindByReference(ctx, reference)
		if readErr != nil {
			return "", readErr
		}
		log.Printf("transaction %s already settled as %s", reference, stored.Status)
		return stored.Status, nil
	}
	if err != nil {
		return "", err
	}
	return txn.Status, nil
}
