package domain

import "time"

// TaskStatus enumerates lifecycle states of a staff task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAccepted   TaskStatus = "accepted"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusRejected   TaskStatus = "rejected"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether no further action can change the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// TaskPriority enumerates urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskAction names a requested lifecycle change. Clients never send raw statuses.
type TaskAction string

const (
	TaskActionAccept  TaskAction = "accept"
	TaskActionStart   TaskAction = "start"
	TaskActionSubmit  TaskAction = "submit"
	TaskActionApprove TaskAction = "approve"
	TaskActionReject  TaskAction = "reject"
	TaskActionCancel  TaskAction = "cancel"
)

// StaffTask is a unit of work assigned to a staff member.
type StaffTask struct {
	ID           string
	Description  string
	AssigneeID   string
	AssigneeName string
	AssigneeUser string
	AssignerID   string
	Priority     TaskPriority
	Status       TaskStatus
	DueDate      time.Time
	StartedAt    *time.Time
	SubmittedAt  *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
