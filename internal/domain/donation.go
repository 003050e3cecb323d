package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donation is a campaign record. CurrentAmount is a persisted running total
// mutated only through the ledger's CONFIRMED transition, never by user input.
type Donation struct {
	ID            uuid.UUID
	Title         string
	TargetAmount  float64
	CurrentAmount float64
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
