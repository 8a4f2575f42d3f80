package dto

import (
	"time"

	"github.com/teqwa/teqwa-core/internal/domain"
)

// CreateTaskRequest payload for assigning a task.
type CreateTaskRequest struct {
	Task       string              `json:"task" validate:"notblank,max=2000"`
	AssignedTo string              `json:"assigned_to" validate:"required,uuid"`
	Priority   domain.TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate    string              `json:"due_date" validate:"required,datetime=2006-01-02"`
}

// UpdateTaskStatusRequest names the lifecycle action to apply.
type UpdateTaskStatusRequest struct {
	Action string `json:"action"`
}

// TaskListQuery are the supported list filters.
type TaskListQuery struct {
	Status  string `query:"status" validate:"omitempty,oneof=pending accepted in_progress submitted completed rejected cancelled"`
	StaffID string `query:"staff_id" validate:"omitempty,uuid"`
	Limit   int    `query:"limit" validate:"gte=0,lte=200"`
	Offset  int    `query:"offset" validate:"gte=0"`
}

// TaskResponse describes a staff task.
type TaskResponse struct {
	ID             string              `json:"id"`
	Task           string              `json:"task"`
	AssignedTo     string              `json:"assigned_to"`
	AssignedToName string              `json:"assigned_to_name"`
	AssignedBy     string              `json:"assigned_by"`
	Priority       domain.TaskPriority `json:"priority"`
	Status         domain.TaskStatus   `json:"status"`
	DueDate        string              `json:"due_date"`
	StartedAt      *time.Time          `json:"started_at"`
	SubmittedAt    *time.Time          `json:"submitted_at"`
	CompletedAt    *time.Time          `json:"completed_at"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NewTaskResponse maps a domain task.
func NewTaskResponse(t *domain.StaffTask) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		Task:           t.Description,
		AssignedTo:     t.AssigneeID,
		AssignedToName: t.AssigneeName,
		AssignedBy:     t.AssignerID,
		Priority:       t.Priority,
		Status:         t.Status,
		DueDate:        formatDate(t.DueDate),
		StartedAt:      t.StartedAt,
		SubmittedAt:    t.SubmittedAt,
		CompletedAt:    t.CompletedAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// NewTaskResponses maps a list, never returning nil.
func NewTaskResponses(tasks []domain.StaffTask) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i]))
	}
	return out
}
