package domain

import "time"

// BookingStatus enumerates futsal court booking states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// FutsalBooking reserves a court slot.
type FutsalBooking struct {
	ID           int64
	SlotID       int64
	UserID       string
	ContactName  string
	ContactEmail string
	PlayerCount  int
	Status       BookingStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
