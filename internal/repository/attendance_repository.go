package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/persistence"
)

// AttendanceRepository persists daily staff attendance rows.
type AttendanceRepository interface {
	// GetForDate returns pgx.ErrNoRows when the staff member has no row for the day.
	GetForDate(ctx context.Context, staffID string, day time.Time) (*domain.StaffAttendance, error)
	// Ensure returns the row for the day, inserting one with the given status when absent.
	Ensure(ctx context.Context, staffID string, day time.Time, status domain.AttendanceStatus) (*domain.StaffAttendance, error)
	Update(ctx context.Context, att *domain.StaffAttendance) error
	ListByDate(ctx context.Context, day time.Time) ([]domain.StaffAttendance, error)
	ListWorkLog(ctx context.Context, filter WorkLogFilter) ([]domain.StaffAttendance, error)
	SumHours(ctx context.Context, staffID *string, from, to time.Time) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, staffID *string, day time.Time) (map[domain.AttendanceStatus]int, error)
}

// WorkLogFilter narrows the working hours log.
type WorkLogFilter struct {
	StaffID *string
	Limit   int
}

type attendanceRepository struct {
	db persistence.Querier
}

// NewAttendanceRepository returns a Postgres-backed implementation.
func NewAttendanceRepository(db persistence.Querier) AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceSelect = `
        SELECT a.id, a.staff_id, trim(u.first_name || ' ' || u.last_name), a.date, a.check_in, a.check_out,
               a.total_hours, a.status, a.notes, a.created_at, a.updated_at
        FROM staff_attendance a
        JOIN staff_members s ON s.id = a.staff_id
        JOIN users u ON u.id = s.user_id`

func (r *attendanceRepository) GetForDate(ctx context.Context, staffID string, day time.Time) (*domain.StaffAttendance, error) {
	return scanAttendance(conn(ctx, r.db).QueryRow(ctx,
		attendanceSelect+` WHERE a.staff_id=$1 AND a.date=$2::date`, staffID, dateKey(day)))
}

func (r *attendanceRepository) Ensure(ctx context.Context, staffID string, day time.Time, status domain.AttendanceStatus) (*domain.StaffAttendance, error) {
	const insert = `
        INSERT INTO staff_attendance (staff_id, date, status)
        VALUES ($1, $2::date, $3)
        ON CONFLICT (staff_id, date) DO NOTHING`

	if _, err := conn(ctx, r.db).Exec(ctx, insert, staffID, dateKey(day), status); err != nil {
		return nil, err
	}
	return r.GetForDate(ctx, staffID, day)
}

func (r *attendanceRepository) Update(ctx context.Context, att *domain.StaffAttendance) error {
	const query = `
        UPDATE staff_attendance
        SET check_in=$1, check_out=$2, total_hours=$3, status=$4, notes=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	return conn(ctx, r.db).QueryRow(ctx, query,
		att.CheckIn,
		att.CheckOut,
		att.TotalHours,
		att.Status,
		att.Notes,
		att.ID,
	).Scan(&att.UpdatedAt)
}

func (r *attendanceRepository) ListByDate(ctx context.Context, day time.Time) ([]domain.StaffAttendance, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		attendanceSelect+` WHERE a.date=$1::date ORDER BY u.first_name, u.last_name`, dateKey(day))
	if err != nil {
		return nil, err
	}
	return collectAttendance(rows)
}

func (r *attendanceRepository) ListWorkLog(ctx context.Context, filter WorkLogFilter) ([]domain.StaffAttendance, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := attendanceSelect + ` WHERE a.check_in IS NOT NULL`
	args := []any{}
	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		query += ` AND a.staff_id=$1`
	}
	query += fmt.Sprintf(" ORDER BY a.date DESC, a.check_in DESC LIMIT %d", limit)

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAttendance(rows)
}

func (r *attendanceRepository) SumHours(ctx context.Context, staffID *string, from, to time.Time) (decimal.Decimal, error) {
	const query = `
        SELECT COALESCE(SUM(total_hours), 0)
        FROM staff_attendance
        WHERE date BETWEEN $1::date AND $2::date
          AND ($3::uuid IS NULL OR staff_id = $3::uuid)`

	var total decimal.Decimal
	err := conn(ctx, r.db).QueryRow(ctx, query, dateKey(from), dateKey(to), staffID).Scan(&total)
	return total, err
}

func (r *attendanceRepository) CountByStatus(ctx context.Context, staffID *string, day time.Time) (map[domain.AttendanceStatus]int, error) {
	const query = `
        SELECT status, COUNT(*)
        FROM staff_attendance
        WHERE date = $1::date
          AND ($2::uuid IS NULL OR staff_id = $2::uuid)
        GROUP BY status`

	rows, err := conn(ctx, r.db).Query(ctx, query, dateKey(day), staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.AttendanceStatus]int{}
	for rows.Next() {
		var (
			status domain.AttendanceStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func collectAttendance(rows pgx.Rows) ([]domain.StaffAttendance, error) {
	defer rows.Close()
	result := []domain.StaffAttendance{}
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *att)
	}
	return result, rows.Err()
}

func scanAttendance(row pgx.Row) (*domain.StaffAttendance, error) {
	var att domain.StaffAttendance
	if err := row.Scan(
		&att.ID,
		&att.StaffID,
		&att.StaffName,
		&att.Date,
		&att.CheckIn,
		&att.CheckOut,
		&att.TotalHours,
		&att.Status,
		&att.Notes,
		&att.CreatedAt,
		&att.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &att, nil
}
