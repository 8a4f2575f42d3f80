package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/persistence"
)

// TaskRepository persists staff tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.StaffTask) error
	GetByID(ctx context.Context, id string) (*domain.StaffTask, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.StaffTask, error)
	// UpdateStatus writes the status and lifecycle timestamps only while the
	// stored status still equals from. It reports false when another writer won.
	UpdateStatus(ctx context.Context, task *domain.StaffTask, from domain.TaskStatus) (bool, error)
	Counts(ctx context.Context, filter TaskCountFilter) (TaskCounts, error)
}

// TaskFilter defines list parameters.
type TaskFilter struct {
	AssigneeID *string
	Statuses   []domain.TaskStatus
	Limit      int
	Offset     int
}

// TaskCountFilter scopes report aggregates. Today decides which tasks are overdue.
type TaskCountFilter struct {
	AssigneeID *string
	Today      time.Time
}

// TaskCounts aggregates tasks for reports.
type TaskCounts struct {
	Total     int
	Completed int
	Pending   int
	Overdue   int
}

type taskRepository struct {
	db persistence.Querier
}

// NewTaskRepository returns a Postgres-backed implementation.
func NewTaskRepository(db persistence.Querier) TaskRepository {
	return &taskRepository{db: db}
}

const taskSelect = `
        SELECT t.id, t.task, t.assigned_to, trim(u.first_name || ' ' || u.last_name), s.user_id, t.assigned_by,
               t.priority, t.status, t.due_date, t.started_at, t.submitted_at, t.completed_at, t.created_at, t.updated_at
        FROM staff_tasks t
        JOIN staff_members s ON s.id = t.assigned_to
        JOIN users u ON u.id = s.user_id`

func (r *taskRepository) Create(ctx context.Context, task *domain.StaffTask) error {
	const query = `
        INSERT INTO staff_tasks (task, assigned_to, assigned_by, priority, status, due_date)
        VALUES ($1,$2,$3,$4,$5,$6::date)
        RETURNING id, created_at, updated_at`

	return conn(ctx, r.db).QueryRow(ctx, query,
		task.Description,
		task.AssigneeID,
		task.AssignerID,
		task.Priority,
		task.Status,
		dateKey(task.DueDate),
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.StaffTask, error) {
	return scanTask(conn(ctx, r.db).QueryRow(ctx, taskSelect+` WHERE t.id=$1`, id))
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.StaffTask, error) {
	query := taskSelect
	args := []any{}
	clauses := []string{}

	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("t.status = ANY($%d)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY t.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StaffTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func (r *taskRepository) UpdateStatus(ctx context.Context, task *domain.StaffTask, from domain.TaskStatus) (bool, error) {
	const query = `
        UPDATE staff_tasks
        SET status=$1, started_at=$2, submitted_at=$3, completed_at=$4, updated_at=NOW()
        WHERE id=$5 AND status=$6
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRow(ctx, query,
		task.Status,
		task.StartedAt,
		task.SubmittedAt,
		task.CompletedAt,
		task.ID,
		from,
	).Scan(&task.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *taskRepository) Counts(ctx context.Context, filter TaskCountFilter) (TaskCounts, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'completed'),
               COUNT(*) FILTER (WHERE status = 'pending'),
               COUNT(*) FILTER (WHERE due_date < $1::date AND status IN ('pending', 'accepted', 'in_progress'))
        FROM staff_tasks
        WHERE ($2::uuid IS NULL OR assigned_to = $2::uuid)`

	var counts TaskCounts
	err := conn(ctx, r.db).QueryRow(ctx, query, dateKey(filter.Today), filter.AssigneeID).
		Scan(&counts.Total, &counts.Completed, &counts.Pending, &counts.Overdue)
	return counts, err
}

func scanTask(row pgx.Row) (*domain.StaffTask, error) {
	var task domain.StaffTask
	if err := row.Scan(
		&task.ID,
		&task.Description,
		&task.AssigneeID,
		&task.AssigneeName,
		&task.AssigneeUser,
		&task.AssignerID,
		&task.Priority,
		&task.Status,
		&task.DueDate,
		&task.StartedAt,
		&task.SubmittedAt,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
