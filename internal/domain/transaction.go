package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus enumerates payment attempt states.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

// PayableType tags the business record a transaction pays for.
type PayableType string

const (
	PayableDonation          PayableType = "donation"
	PayableFutsalBooking     PayableType = "futsalbooking"
	PayableServiceEnrollment PayableType = "serviceenrollment"
)

// Valid reports whether the tag is a known payable type.
func (p PayableType) Valid() bool {
	switch p {
	case PayableDonation, PayableFutsalBooking, PayableServiceEnrollment:
		return true
	}
	return false
}

// Transaction is one attempt to collect money through the gateway.
// It references exactly one business record through (ObjectType, ObjectID).
type Transaction struct {
	ID               int64
	TxRef            string
	Amount           decimal.Decimal
	Currency         string
	Email            string
	FirstName        string
	LastName         string
	ObjectType       PayableType
	ObjectID         int64
	PaymentMethod    *string
	GatewayReference *string
	Status           TransactionStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
