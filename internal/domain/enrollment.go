package domain

import "time"

// EnrollmentStatus enumerates education enrollment states.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentConfirmed EnrollmentStatus = "confirmed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// EnrollmentPaymentStatus tracks whether the fee was collected.
type EnrollmentPaymentStatus string

const (
	EnrollmentPaymentPending  EnrollmentPaymentStatus = "pending"
	EnrollmentPaymentPaid     EnrollmentPaymentStatus = "paid"
	EnrollmentPaymentRefunded EnrollmentPaymentStatus = "refunded"
)

// ServiceEnrollment registers a user for a course or educational service.
type ServiceEnrollment struct {
	ID            int64
	CourseID      *int64
	UserID        string
	Status        EnrollmentStatus
	PaymentStatus EnrollmentPaymentStatus
	PaymentMethod string
	EnrolledAt    time.Time
}
