package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"donation-gateway/internal/domain"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/repo"

	"github.com/google/uuid"
)

type InitiateRequest struct {
	Amount     float64
	DonationID uuid.UUID
	Method     domain.PaymentMethod
	Provider   string
	Customer   domain.CustomerInfo
}

type InitiateResult struct {
	Reference   string
	RedirectURL string
}

type PaymentService interface {
	// Initiate executes the "initiate donation" use case: validate, submit to
	// the gateway, and ledger a PENDING transaction. Exactly one ledger row
	// per successful-or-ambiguous submission, zero for a clean rejection.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
}

type paymentService struct {
	transactions repo.TransactionRepo
	donations    repo.DonationRepo
	gateway      gateway.Client
}

func NewPaymentService(
	transactions repo.TransactionRepo,
	donations repo.DonationRepo,
	gw gateway.Client,
) PaymentService {
	return &paymentService{
		transactions: transactions,
		donations:    donations,
		gateway:      gw,
	}
}

func (s *paymentService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domain.ErrInvalidRequest)
	}
	if req.Method != domain.MethodMobileMoney && req.Method != domain.MethodCard {
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrInvalidRequest, req.Method)
	}
	if req.Method == domain.MethodMobileMoney && strings.TrimSpace(req.Provider) == "" {
		return nil, fmt.Errorf("%w: mobile money requires a provider", domain.ErrInvalidRequest)
	}

	donation, err := s.donations.FindById(ctx, req.DonationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown campaign %s", domain.ErrInvalidRequest, req.DonationID)
	}
	if err != nil {
		return nil, err
	}
	if !donation.IsActive {
		return nil, fmt.Errorf("%w: campaign %s is not accepting donations", domain.ErrInvalidRequest, req.DonationID)
	}

	// The reference exists before the gateway is ever contacted, so retries
	// of this attempt stay deduplicable end to end.
	reference := NewReference()

	if err := s.gateway.Authenticate(ctx); err != nil {
		return nil, err
	}

	result, submitErr := s.gateway.SubmitPayment(ctx, gateway.SubmitRequest{
		Reference: reference,
		Amount:    req.Amount,
		Method:    req.Method,
		Provider:  req.Provider,
		Customer:  req.Customer,
	})

	if submitErr != nil && !errors.Is(submitErr, domain.ErrGatewayUnavailable) {
		// Explicit rejection or auth failure: nothing to reconcile, no row.
		return nil, submitErr
	}

	now := time.Now()
	txn := &domain.Transaction{
		Reference:  reference,
		DonationID: req.DonationID,
		Amount:     req.Amount,
		Method:     req.Method,
		Provider:   req.Provider,
		Status:     domain.TransactionPending,
		Customer:   req.Customer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if submitErr == nil {
		txn.GatewayTxnID = result.GatewayTxnID
		txn.RedirectURL = result.RedirectURL
	}
	// On timeout the row is ledgered without a gateway transaction id: the
	// payment may or may not have reached the provider, and reconciliation
	// resolves it later via status query or callback.

	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	return &InitiateResult{Reference: reference, RedirectURL: txn.RedirectURL}, nil
}

// NewReference generates a collision-resistant ledger reference: a millisecond
// timestamp plus a random uuid-derived suffix.
func NewReference() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("DON-%d-%s", time.Now().UnixMilli(), suffix)
}
