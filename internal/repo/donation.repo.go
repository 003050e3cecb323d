package repo

import (
	"context"
	"database/sql"

	"donation-gateway/internal/domain"

	"github.com/google/uuid"
)

type DonationRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Donation, error)
	Create(ctx context.Context, donation *domain.Donation) error
	// IncrementRaised adds amount to the campaign's running total with a single
	// atomic UPDATE. It runs on the caller's transaction so the increment
	// commits together with the ledger transition that justifies it.
	IncrementRaised(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount float64) error
}

type donationRepo struct {
	db *sql.DB
}

func NewDonationRepo(db *sql.DB) DonationRepo {
	return &donationRepo{db: db}
}

func (r *donationRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Donation, error) {
	var d domain.Donation
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, target_amount, current_amount, is_active, created_at, updated_at
		FROM donations WHERE id = $1`, id).Scan(
		&d.ID,
		&d.Title,
		&d.TargetAmount,
		&d.CurrentAmount,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *donationRepo) Create(ctx context.Context, donation *domain.Donation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO donations (id, title, target_amount, current_amount, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		donation.ID,
		donation.Title,
		donation.TargetAmount,
		donation.CurrentAmount,
		donation.IsActive,
		donation.CreatedAt,
		donation.UpdatedAt,
	)
	return err
}

func (r *donationRepo) IncrementRaised(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE donations
		SET current_amount = current_amount + $2,
		    updated_at = now()
		WHERE id = $1`, id, amount)
	return err
}
