package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"donation-gateway/internal/domain"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/repo"

	"github.com/google/uuid"
)

// fakeLedger is an in-memory TransactionRepo with the same compare-and-set
// semantics as the postgres implementation.
type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]*domain.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]*domain.Transaction)}
}

func (f *fakeLedger) Create(ctx context.Context, txn *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[txn.Reference]; exists {
		return domain.ErrDuplicateReference
	}
	cp := *txn
	f.rows[txn.Reference] = &cp
	return nil
}

func (f *fakeLedger) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.rows[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeLedger) FindByGatewayTxn(ctx context.Context, gatewayTxnID string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.rows {
		if txn.GatewayTxnID == gatewayTxnID && gatewayTxnID != "" {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) Transition(ctx context.Context, reference string, from, to domain.TransactionStatus, mutate repo.TransitionMutator) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.rows[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if txn.Status != from {
		return nil, domain.ErrInvalidTransition
	}
	cp := *txn
	now := time.Now()
	cp.Status = to
	cp.UpdatedAt = now
	if to == domain.TransactionConfirmed {
		cp.ConfirmedAt = &now
	}
	if mutate != nil {
		if err := mutate(ctx, nil, &cp); err != nil {
			return nil, err
		}
	}
	f.rows[reference] = &cp
	out := cp
	return &out, nil
}

func (f *fakeLedger) FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []domain.Transaction
	for _, txn := range f.rows {
		if txn.Status == domain.TransactionPending && txn.UpdatedAt.Before(cutoff) {
			out = append(out, *txn)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeDonations struct {
	mu         sync.Mutex
	campaigns  map[uuid.UUID]*domain.Donation
	increments int
}

func newFakeDonations(campaigns ...*domain.Donation) *fakeDonations {
	f := &fakeDonations{campaigns: make(map[uuid.UUID]*domain.Donation)}
	for _, c := range campaigns {
		cp := *c
		f.campaigns[c.ID] = &cp
	}
	return f
}

func (f *fakeDonations) FindById(ctx context.Context, id uuid.UUID) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDonations) Create(ctx context.Context, donation *domain.Donation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *donation
	f.campaigns[donation.ID] = &cp
	return nil
}

func (f *fakeDonations) IncrementRaised(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.CurrentAmount += amount
	f.increments++
	return nil
}

func (f *fakeDonations) incrementCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.increments
}

// fakeGateway gives tests full control over each gateway interaction.
type fakeGateway struct {
	mu          sync.Mutex
	authErr     error
	submitRes   *gateway.SubmitResult
	submitErr   error
	authCalls   int
	submitCalls int
	statusByTxn map[string]gateway.Status
	statusByRef map[string]gateway.Status
	queryErr    error
	queryCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		statusByTxn: make(map[string]gateway.Status),
		statusByRef: make(map[string]gateway.Status),
	}
}

func (f *fakeGateway) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authErr
}

func (f *fakeGateway) SubmitPayment(ctx context.Context, req gateway.SubmitRequest) (*gateway.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitRes, nil
}

func (f *fakeGateway) QueryStatus(ctx context.Context, gatewayTxnID string) (gateway.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return "", f.queryErr
	}
	status, ok := f.statusByTxn[gatewayTxnID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return status, nil
}

func (f *fakeGateway) QueryStatusByReference(ctx context.Context, reference string) (gateway.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return "", f.queryErr
	}
	status, ok := f.statusByRef[reference]
	if !ok {
		return "", domain.ErrNotFound
	}
	return status, nil
}
