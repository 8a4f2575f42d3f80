package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/persistence"
)

// PayableRepository reads and settles the business records a transaction can pay for.
type PayableRepository interface {
	Exists(ctx context.Context, kind domain.PayableType, id int64) (bool, error)
	GetDonation(ctx context.Context, id int64) (*domain.Donation, error)
	CompleteDonation(ctx context.Context, id int64) error
	ConfirmBooking(ctx context.Context, id int64) error
	ConfirmEnrollment(ctx context.Context, id int64) error
}

type payableRepository struct {
	db persistence.Querier
}

// NewPayableRepository returns a Postgres-backed implementation.
func NewPayableRepository(db persistence.Querier) PayableRepository {
	return &payableRepository{db: db}
}

var payableTables = map[domain.PayableType]string{
	domain.PayableDonation:          "donations",
	domain.PayableFutsalBooking:     "futsal_bookings",
	domain.PayableServiceEnrollment: "service_enrollments",
}

func (r *payableRepository) Exists(ctx context.Context, kind domain.PayableType, id int64) (bool, error) {
	table, ok := payableTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown payable type %q", kind)
	}
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *payableRepository) GetDonation(ctx context.Context, id int64) (*domain.Donation, error) {
	const query = `
        SELECT d.id, d.donor_name, d.email, d.amount, d.currency, d.method, d.message,
               d.cause_id, c.title, d.status, d.user_id, d.created_at, d.updated_at
        FROM donations d
        JOIN donation_causes c ON c.id = d.cause_id
        WHERE d.id=$1`

	var d domain.Donation
	if err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.DonorName,
		&d.Email,
		&d.Amount,
		&d.Currency,
		&d.Method,
		&d.Message,
		&d.CauseID,
		&d.CauseTitle,
		&d.Status,
		&d.UserID,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *payableRepository) CompleteDonation(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE donations SET status='completed', updated_at=NOW() WHERE id=$1`, id)
}

func (r *payableRepository) ConfirmBooking(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE futsal_bookings SET status='confirmed', updated_at=NOW() WHERE id=$1`, id)
}

func (r *payableRepository) ConfirmEnrollment(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE service_enrollments SET status='confirmed', payment_status='paid' WHERE id=$1`, id)
}

func (r *payableRepository) exec(ctx context.Context, query string, id int64) error {
	cmd, err := conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
