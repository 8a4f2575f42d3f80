package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/persistence"
)

// TransactionRepository persists gateway payment attempts.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByRef(ctx context.Context, txRef string) (*domain.Transaction, error)
	// MarkSuccess flips any non-success row to success. It reports whether this
	// call performed the flip; at most one caller ever observes true per tx_ref.
	MarkSuccess(ctx context.Context, txRef string, gatewayRef, method *string) (bool, error)
	// MarkFailed only touches rows that are still pending.
	MarkFailed(ctx context.Context, txRef string) (bool, error)
}

type transactionRepository struct {
	db persistence.Querier
}

// NewTransactionRepository returns a Postgres-backed implementation.
func NewTransactionRepository(db persistence.Querier) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (tx_ref, amount, currency, email, first_name, last_name, content_type, object_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	return conn(ctx, r.db).QueryRow(ctx, query,
		tx.TxRef,
		tx.Amount,
		tx.Currency,
		tx.Email,
		tx.FirstName,
		tx.LastName,
		tx.ObjectType,
		tx.ObjectID,
		tx.Status,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

func (r *transactionRepository) GetByRef(ctx context.Context, txRef string) (*domain.Transaction, error) {
	const query = `
        SELECT id, tx_ref, amount, currency, email, first_name, last_name, content_type, object_id,
               payment_method, chapa_reference, status, created_at, updated_at
        FROM transactions WHERE tx_ref=$1`

	var tx domain.Transaction
	if err := conn(ctx, r.db).QueryRow(ctx, query, txRef).Scan(
		&tx.ID,
		&tx.TxRef,
		&tx.Amount,
		&tx.Currency,
		&tx.Email,
		&tx.FirstName,
		&tx.LastName,
		&tx.ObjectType,
		&tx.ObjectID,
		&tx.PaymentMethod,
		&tx.GatewayReference,
		&tx.Status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) MarkSuccess(ctx context.Context, txRef string, gatewayRef, method *string) (bool, error) {
	const query = `
        UPDATE transactions
        SET status='success',
            chapa_reference=COALESCE($2, chapa_reference),
            payment_method=COALESCE($3, payment_method),
            updated_at=NOW()
        WHERE tx_ref=$1 AND status <> 'success'`

	cmd, err := conn(ctx, r.db).Exec(ctx, query, txRef, gatewayRef, method)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *transactionRepository) MarkFailed(ctx context.Context, txRef string) (bool, error) {
	cmd, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE transactions SET status='failed', updated_at=NOW() WHERE tx_ref=$1 AND status='pending'`, txRef)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
