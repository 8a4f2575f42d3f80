package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventPaymentSucceeded  EventType = "payment_succeeded"
	EventPaymentFailed     EventType = "payment_failed"
)

// Actor identifies the user behind an event. Empty for gateway-driven events.
type Actor struct {
	UserID string          `json:"user_id,omitempty"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	AssigneeID string              `json:"assignee_id"`
	Priority   domain.TaskPriority `json:"priority"`
	DueDate    time.Time           `json:"due_date"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	Action     domain.TaskAction `json:"action"`
	OldStatus  domain.TaskStatus `json:"old_status"`
	NewStatus  domain.TaskStatus `json:"new_status"`
	AssigneeID string            `json:"assignee_id"`
}

// PaymentSucceededPayload carries what notification handlers need after commit.
// Donation is set only for donation payments.
type PaymentSucceededPayload struct {
	TxRef      string             `json:"tx_ref"`
	Amount     decimal.Decimal    `json:"amount"`
	Currency   string             `json:"currency"`
	ObjectType domain.PayableType `json:"object_type"`
	ObjectID   int64              `json:"object_id"`
	Donation   *domain.Donation   `json:"donation,omitempty"`
}

// PaymentFailedPayload payload.
type PaymentFailedPayload struct {
	TxRef  string `json:"tx_ref"`
	Reason string `json:"reason"`
}
