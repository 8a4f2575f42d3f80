package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus enumerates donation states.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
	DonationRefunded  DonationStatus = "refunded"
)

// Donation is a gift toward a cause.
type Donation struct {
	ID         int64
	DonorName  string
	Email      string
	Amount     decimal.Decimal
	Currency   string
	Method     string
	Message    string
	CauseID    int64
	CauseTitle string
	Status     DonationStatus
	UserID     *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
