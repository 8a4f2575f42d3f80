package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/service"
)

// TaskManager is the task lifecycle surface used by TasksHandler.
type TaskManager interface {
	CreateTask(ctx context.Context, actor *auth.Principal, input service.TaskCreateInput) (*domain.StaffTask, error)
	ListTasks(ctx context.Context, actor *auth.Principal, filter service.TaskListFilter) ([]domain.StaffTask, error)
	GetTask(ctx context.Context, actor *auth.Principal, taskID string) (*domain.StaffTask, error)
	UpdateTaskStatus(ctx context.Context, actor *auth.Principal, taskID, action string) (*domain.StaffTask, error)
}

// TasksHandler exposes staff task endpoints.
type TasksHandler struct {
	tasks TaskManager
	loc   *time.Location
}

// NewTasksHandler constructs handler. loc interprets due dates.
func NewTasksHandler(tasks TaskManager, loc *time.Location) *TasksHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TasksHandler{tasks: tasks, loc: loc}
}

// List handles GET /api/v1/staff/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var q dto.TaskListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	filter := service.TaskListFilter{
		StaffID: optionalString(q.StaffID),
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if q.Status != "" {
		status := domain.TaskStatus(q.Status)
		filter.Status = &status
	}
	tasks, err := h.tasks.ListTasks(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskResponses(tasks)))
}

// Create handles POST /api/v1/staff/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	due, err := parseDate(req.DueDate, h.loc)
	if err != nil {
		return err
	}
	task, err := h.tasks.CreateTask(c.UserContext(), actor, service.TaskCreateInput{
		Description: req.Task,
		AssigneeID:  req.AssignedTo,
		Priority:    req.Priority,
		DueDate:     *due,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.NewTaskResponse(task)))
}

// Get handles GET /api/v1/staff/tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		return err
	}
	task, err := h.tasks.GetTask(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskResponse(task)))
}

// UpdateStatus handles POST /api/v1/staff/tasks/:id/status.
func (h *TasksHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		return err
	}
	var req dto.UpdateTaskStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	task, err := h.tasks.UpdateTaskStatus(c.UserContext(), actor, id, req.Action)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskResponse(task)))
}
