package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"donation-gateway/internal/domain"

	"github.com/google/uuid"
)

type SubmitBehavior int

const (
	// BehaviorAccept: provider accepts and the customer pays immediately.
	BehaviorAccept SubmitBehavior = iota
	// BehaviorDecline: provider explicitly rejects the payment.
	BehaviorDecline
	// BehaviorTimeout: the charge goes through on the provider side but the
	// caller only sees a transport error. The phantom charge.
	BehaviorTimeout
)

// Mock is an in-memory stand-in for the provider, used by tests and the
// simulation binary. Behavior is random by default (70% accept, 20% decline,
// 10% timeout) and can be scripted per call for deterministic tests.
type Mock struct {
	mu       sync.RWMutex
	outcomes map[string]Status // keyed by reference
	txnRefs  map[string]string // gateway txn id -> reference
	scripted []SubmitBehavior
	authErr  error
}

func NewMock() *Mock {
	return &Mock{
		outcomes: make(map[string]Status),
		txnRefs:  make(map[string]string),
	}
}

// ScriptNext queues behaviors consumed by subsequent SubmitPayment calls.
func (m *Mock) ScriptNext(behaviors ...SubmitBehavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, behaviors...)
}

// FailAuth makes Authenticate return the given error (nil restores success).
func (m *Mock) FailAuth(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authErr = err
}

// Settle records a terminal outcome for a reference, simulating the customer
// completing or abandoning the provider-side flow after submission.
func (m *Mock) Settle(reference string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[reference] = status
}

func (m *Mock) Authenticate(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authErr
}

func (m *Mock) SubmitPayment(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent on the reference: a retried submission returns the original
	// transaction rather than charging twice.
	if txnID, ok := m.findTxnByRef(req.Reference); ok {
		return &SubmitResult{GatewayTxnID: txnID, RedirectURL: m.redirectFor(req.Reference)}, nil
	}

	behavior := m.nextBehavior()

	switch behavior {
	case BehaviorDecline:
		m.outcomes[req.Reference] = StatusFailed
		return nil, fmt.Errorf("%w: insufficient funds", domain.ErrGatewayRejected)

	case BehaviorTimeout:
		// Money moved on the provider side, caller sees a timeout.
		txnID := uuid.NewString()
		m.outcomes[req.Reference] = StatusSuccessful
		m.txnRefs[txnID] = req.Reference
		return nil, fmt.Errorf("%w: connection timeout", domain.ErrGatewayUnavailable)

	default:
		txnID := uuid.NewString()
		m.outcomes[req.Reference] = StatusSuccessful
		m.txnRefs[txnID] = req.Reference
		return &SubmitResult{GatewayTxnID: txnID, RedirectURL: m.redirectFor(req.Reference)}, nil
	}
}

func (m *Mock) QueryStatus(ctx context.Context, gatewayTxnID string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reference, ok := m.txnRefs[gatewayTxnID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return m.outcomes[reference], nil
}

func (m *Mock) QueryStatusByReference(ctx context.Context, reference string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.outcomes[reference]
	if !ok {
		return "", domain.ErrNotFound
	}
	return status, nil
}

// TxnIDFor returns the provider transaction id recorded for a reference, for
// tests that need to emulate a provider callback.
func (m *Mock) TxnIDFor(reference string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, _ := m.findTxnByRef(reference)
	return id
}

func (m *Mock) findTxnByRef(reference string) (string, bool) {
	for id, ref := range m.txnRefs {
		if ref == reference {
			return id, true
		}
	}
	return "", false
}

func (m *Mock) nextBehavior() SubmitBehavior {
	if len(m.scripted) > 0 {
		b := m.scripted[0]
		m.scripted = m.scripted[1:]
		return b
	}
	chance := rand.IntN(100)
	switch {
	case chance < 70:
		return BehaviorAccept
	case chance < 90:
		return BehaviorDecline
	default:
		return BehaviorTimeout
	}
}

func (m *Mock) redirectFor(reference string) string {
	return "https://pay.example.test/checkout/" + reference
}
