package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/events"
	"github.com/teqwa/teqwa-core/internal/repository"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

// TaskService owns the staff task lifecycle. Every status change goes
// through UpdateTaskStatus with a named action.
type TaskService struct {
	tasks      repository.TaskRepository
	attendance repository.AttendanceRepository
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo       repository.TaskRepository
	AttendanceRepo repository.AttendanceRepository
	StaffRepo      repository.StaffRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	// Location defines the calendar day used for the attendance check.
	Location *time.Location
	Clock    func() time.Time
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Description string
	AssigneeID  string
	Priority    domain.TaskPriority
	DueDate     time.Time
}

// TaskListFilter describes listing parameters.
type TaskListFilter struct {
	Status  *domain.TaskStatus
	StaffID *string
	Limit   int
	Offset  int
}

type taskTransition struct {
	from      []domain.TaskStatus
	to        domain.TaskStatus
	adminOnly bool
}

var taskTransitions = map[domain.TaskAction]taskTransition{
	domain.TaskActionAccept: {
		from: []domain.TaskStatus{domain.TaskStatusPending},
		to:   domain.TaskStatusAccepted,
	},
	domain.TaskActionStart: {
		from: []domain.TaskStatus{domain.TaskStatusAccepted, domain.TaskStatusRejected},
		to:   domain.TaskStatusInProgress,
	},
	domain.TaskActionSubmit: {
		from: []domain.TaskStatus{domain.TaskStatusInProgress},
		to:   domain.TaskStatusSubmitted,
	},
	domain.TaskActionApprove: {
		from:      []domain.TaskStatus{domain.TaskStatusSubmitted},
		to:        domain.TaskStatusCompleted,
		adminOnly: true,
	},
	domain.TaskActionReject: {
		from:      []domain.TaskStatus{domain.TaskStatusSubmitted},
		to:        domain.TaskStatusRejected,
		adminOnly: true,
	},
	domain.TaskActionCancel: {
		from: []domain.TaskStatus{
			domain.TaskStatusPending,
			domain.TaskStatusAccepted,
			domain.TaskStatusInProgress,
			domain.TaskStatusSubmitted,
			domain.TaskStatusRejected,
		},
		to:        domain.TaskStatusCancelled,
		adminOnly: true,
	},
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	svc := &TaskService{
		tasks:      deps.TaskRepo,
		attendance: deps.AttendanceRepo,
		staff:      deps.StaffRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		loc:        deps.Location,
		now:        deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// ParseTaskAction normalizes a client supplied action name.
func ParseTaskAction(raw string) (domain.TaskAction, error) {
	action := domain.TaskAction(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := taskTransitions[action]; !ok {
		return "", apperrors.NewInvalidAction(raw)
	}
	return action, nil
}

// UpdateTaskStatus applies action to the task on behalf of actor.
// Checks run in order: action name, actor permission, source state, and for
// start the assignee's attendance. The write is conditional on the status
// read here, so a concurrent change surfaces as an invalid transition.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actor *auth.Principal, taskID, rawAction string) (*domain.StaffTask, error) {
	action, err := ParseTaskAction(rawAction)
	if err != nil {
		return nil, err
	}
	rule := taskTransitions[action]

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.authorize(actor, task, rule); err != nil {
		return nil, err
	}

	if !statusIn(task.Status, rule.from) {
		return nil, invalidTransition(task.Status, action)
	}

	now := s.now()
	if action == domain.TaskActionStart {
		if err := s.requireCheckedIn(ctx, task.AssigneeID, now); err != nil {
			return nil, err
		}
	}

	from := task.Status
	updated := *task
	updated.Status = rule.to
	switch action {
	case domain.TaskActionStart:
		updated.StartedAt = &now
	case domain.TaskActionSubmit:
		updated.SubmittedAt = &now
	case domain.TaskActionApprove:
		updated.CompletedAt = &now
	}

	applied, err := s.tasks.UpdateStatus(ctx, &updated, from)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		return nil, apperrors.NewInvalidTransition("task status changed concurrently",
			map[string]any{"action": action, "status": from})
	}

	s.logger.Info("task status changed",
		zap.String("task_id", task.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", actor.User.ID))

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventTaskStatusChanged,
		Subject: task.ID,
		Actor:   actorOf(actor),
		Payload: events.TaskStatusChangedPayload{
			Action:     action,
			OldStatus:  from,
			NewStatus:  updated.Status,
			AssigneeID: task.AssigneeID,
		},
	})
	return &updated, nil
}

// CreateTask assigns a new pending task. Admin only.
func (s *TaskService) CreateTask(ctx context.Context, actor *auth.Principal, input TaskCreateInput) (*domain.StaffTask, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can assign tasks")
	}
	assignee, err := s.staff.GetByID(ctx, input.AssigneeID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewValidationError("invalid request",
				map[string]any{"fields": map[string]any{"assigned_to": "staff member not found"}})
		}
		return nil, apperrors.MapError(err)
	}

	task := &domain.StaffTask{
		Description:  strings.TrimSpace(input.Description),
		AssigneeID:   assignee.ID,
		AssigneeName: assignee.Name,
		AssigneeUser: assignee.UserID,
		AssignerID:   actor.User.ID,
		Priority:     input.Priority,
		Status:       domain.TaskStatusPending,
		DueDate:      input.DueDate,
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventTaskCreated,
		Subject: task.ID,
		Actor:   actorOf(actor),
		Payload: events.TaskCreatedPayload{
			AssigneeID: task.AssigneeID,
			Priority:   task.Priority,
			DueDate:    task.DueDate,
		},
	})
	return task, nil
}

// ListTasks returns every task for admins and the caller's own tasks for staff.
func (s *TaskService) ListTasks(ctx context.Context, actor *auth.Principal, filter TaskListFilter) ([]domain.StaffTask, error) {
	repoFilter := repository.TaskFilter{
		AssigneeID: filter.StaffID,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Status != nil {
		repoFilter.Statuses = []domain.TaskStatus{*filter.Status}
	}
	if !actor.IsAdmin() {
		if actor.Staff == nil {
			return []domain.StaffTask{}, nil
		}
		repoFilter.AssigneeID = &actor.Staff.ID
	}
	tasks, err := s.tasks.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// GetTask fetches a task visible to the caller.
func (s *TaskService) GetTask(ctx context.Context, actor *auth.Principal, taskID string) (*domain.StaffTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.IsAdmin() && !isAssignee(actor, task) {
		// Hide other people's tasks entirely.
		return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
	}
	return task, nil
}

func (s *TaskService) authorize(actor *auth.Principal, task *domain.StaffTask, rule taskTransition) error {
	if actor == nil || actor.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.IsAdmin() {
		return nil
	}
	if rule.adminOnly {
		return apperrors.NewForbidden("only admins can perform this action")
	}
	if !isAssignee(actor, task) {
		return apperrors.NewForbidden("only the assignee can perform this action")
	}
	return nil
}

// requireCheckedIn blocks unless the staff member has a present attendance
// row for today with no check-out. A missing row blocks the same way.
func (s *TaskService) requireCheckedIn(ctx context.Context, staffID string, now time.Time) error {
	record, err := s.attendance.GetForDate(ctx, staffID, now.In(s.loc))
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewAttendanceRequired()
		}
		return apperrors.MapError(err)
	}
	if !record.IsCheckedIn() {
		return apperrors.NewAttendanceRequired()
	}
	return nil
}

func isAssignee(actor *auth.Principal, task *domain.StaffTask) bool {
	return actor != nil && actor.Staff != nil && actor.Staff.ID == task.AssigneeID
}

func statusIn(status domain.TaskStatus, set []domain.TaskStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func invalidTransition(status domain.TaskStatus, action domain.TaskAction) error {
	msg := "cannot " + string(action) + " a task that is " + string(status)
	if status.Terminal() {
		msg = "task is " + string(status) + " and can no longer change"
	}
	return apperrors.NewInvalidTransition(msg, map[string]any{"action": action, "status": status})
}
