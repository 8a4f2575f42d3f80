package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/persistence"
)

// StaffRepository handles persistence for staff profiles.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByUserID(ctx context.Context, userID string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	CountActive(ctx context.Context) (int, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

type staffRepository struct {
	db persistence.Querier
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db persistence.Querier) StaffRepository {
	return &staffRepository{db: db}
}

const staffSelect = `
        SELECT s.id, s.user_id, trim(u.first_name || ' ' || u.last_name), u.email, s.role, s.phone, s.active_flag, s.joined_date
        FROM staff_members s
        JOIN users u ON u.id = s.user_id`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (user_id, role, phone, active_flag)
        VALUES ($1,$2,$3,$4)
        RETURNING id, joined_date`

	return conn(ctx, r.db).QueryRow(ctx, query,
		staff.UserID,
		staff.Role,
		staff.Phone,
		staff.Active,
	).Scan(&staff.ID, &staff.JoinedDate)
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	return scanStaff(conn(ctx, r.db).QueryRow(ctx, staffSelect+` WHERE s.id=$1`, id))
}

func (r *staffRepository) GetByUserID(ctx context.Context, userID string) (*domain.StaffMember, error) {
	return scanStaff(conn(ctx, r.db).QueryRow(ctx, staffSelect+` WHERE s.user_id=$1`, userID))
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := staffSelect
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("s.role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("s.active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY s.joined_date DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM staff_members WHERE active_flag`).Scan(&n)
	return n, err
}

func scanStaff(row pgx.Row) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := row.Scan(
		&staff.ID,
		&staff.UserID,
		&staff.Name,
		&staff.Email,
		&staff.Role,
		&staff.Phone,
		&staff.Active,
		&staff.JoinedDate,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}
