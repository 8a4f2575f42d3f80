package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttendanceStatus enumerates daily presence states.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceHalfDay AttendanceStatus = "half_day"
)

// StaffAttendance is one staff member's record for one calendar day.
// At most one row exists per (StaffID, Date).
type StaffAttendance struct {
	ID         string
	StaffID    string
	StaffName  string
	Date       time.Time
	CheckIn    *time.Time
	CheckOut   *time.Time
	TotalHours decimal.Decimal
	Status     AttendanceStatus
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsCheckedIn reports whether the staff member is on site right now:
// marked present with no check-out recorded.
func (a *StaffAttendance) IsCheckedIn() bool {
	return a != nil && a.Status == AttendancePresent && a.CheckOut == nil
}
