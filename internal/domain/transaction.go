package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionConfirmed TransactionStatus = "CONFIRMED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionExpired   TransactionStatus = "EXPIRED"
)

type PaymentMethod string

const (
	MethodMobileMoney PaymentMethod = "MOBILE_MONEY"
	MethodCard        PaymentMethod = "CARD"
)

// CustomerInfo is captured at submission time for display and audit only.
// It is never used for authorization decisions.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// Transaction is the unit of truth for one payment attempt. The reference is
// generated locally before the gateway is ever contacted, so a retried
// submission can never produce two rows for one logical donation.
type Transaction struct {
	Reference    string
	GatewayTxnID string // assigned by the provider; empty until submission succeeds
	DonationID   uuid.UUID
	Amount       float64
	Method       PaymentMethod
	Provider     string // mobile-money sub-provider, e.g. "mtn", "orange"; empty for card
	Status       TransactionStatus
	Customer     CustomerInfo
	RedirectURL  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ConfirmedAt  *time.Time // set exactly once, on PENDING -> CONFIRMED
}

func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionConfirmed ||
		t.Status == TransactionFailed ||
		t.Status == TransactionExpired
}

func (t *Transaction) IsPending() bool {
	return t.Status == TransactionPending
}
