package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"donation-gateway/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// TransitionMutator runs inside the same database transaction as a status
// transition. The donation increment on PENDING -> CONFIRMED lives here, so
// it commits if and only if the transition wins the compare-and-set.
type TransitionMutator func(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error

type TransactionRepo interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	FindByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	FindByGatewayTxn(ctx context.Context, gatewayTxnID string) (*domain.Transaction, error)
	// Transition moves a transaction from one status to another, applying the
	// mutator atomically with the status write. The write only happens if the
	// stored status still equals from; otherwise ErrInvalidTransition.
	Transition(ctx context.Context, reference string, from, to domain.TransactionStatus, mutate TransitionMutator) (*domain.Transaction, error)
	FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Transaction, error)
}

type transactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) TransactionRepo {
	return &transactionRepo{db: db}
}

const transactionColumns = `reference, gateway_txn_id, donation_id, amount, method, provider, status,
	customer_name, customer_email, customer_phone, redirect_url, created_at, updated_at, confirmed_at`

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var t domain.Transaction
	var gatewayTxn sql.NullString
	var confirmedAt sql.NullTime
	err := row.Scan(
		&t.Reference,
		&gatewayTxn,
		&t.DonationID,
		&t.Amount,
		&t.Method,
		&t.Provider,
		&t.Status,
		&t.Customer.Name,
		&t.Customer.Email,
		&t.Customer.Phone,
		&t.RedirectURL,
		&t.CreatedAt,
		&t.UpdatedAt,
		&confirmedAt,
	)
	if err != nil {
		return nil, err
	}
	if gatewayTxn.Valid {
		t.GatewayTxnID = gatewayTxn.String
	}
	if confirmedAt.Valid {
		t.ConfirmedAt = &confirmedAt.Time
	}
	return &t, nil
}

func (r *transactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `INSERT INTO transactions
		(reference, gateway_txn_id, donation_id, amount, method, provider, status,
		 customer_name, customer_email, customer_phone, redirect_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		txn.Reference,
		nullableString(txn.GatewayTxnID),
		txn.DonationID,
		txn.Amount,
		txn.Method,
		txn.Provider,
		txn.Status,
		txn.Customer.Name,
		txn.Customer.Email,
		txn.Customer.Phone,
		txn.RedirectURL,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *transactionRepo) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE reference = $1`, transactionColumns)
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *transactionRepo) FindByGatewayTxn(ctx context.Context, gatewayTxnID string) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE gateway_txn_id = $1`, transactionColumns)
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, gatewayTxnID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *transactionRepo) Transition(ctx context.Context, reference string, from, to domain.TransactionStatus, mutate TransitionMutator) (*domain.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE reference = $1 FOR UPDATE`, transactionColumns)
	txn, err := scanTransaction(tx.QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if txn.Status != from {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	txn.Status = to
	txn.UpdatedAt = now
	if to == domain.TransactionConfirmed {
		txn.ConfirmedAt = &now
	}

	if mutate != nil {
		if err := mutate(ctx, tx, txn); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2,
		    gateway_txn_id = COALESCE($3, gateway_txn_id),
		    confirmed_at = $4,
		    updated_at = $5
		WHERE reference = $1 AND status = $6`,
		reference, txn.Status, nullableString(txn.GatewayTxnID), txn.ConfirmedAt, txn.UpdatedAt, from,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *transactionRepo) FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`, transactionColumns)

	rows, err := r.db.QueryContext(ctx, query, domain.TransactionPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
