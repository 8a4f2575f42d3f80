package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/domain"
)

// ClockRequest optionally names the staff member to clock in or out.
type ClockRequest struct {
	StaffID string `json:"staff_id" validate:"omitempty,uuid"`
}

// ToggleAttendanceRequest names the staff member whose day is flipped.
type ToggleAttendanceRequest struct {
	StaffID string `json:"staff_id" validate:"required,uuid"`
}

// AttendanceQuery filters attendance listings.
type AttendanceQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

// StaffFilterQuery scopes working hours and reports.
type StaffFilterQuery struct {
	StaffID string `query:"staff_id" validate:"omitempty,uuid"`
	Period  string `query:"period" validate:"omitempty,oneof=daily weekly monthly"`
}

// AttendanceResponse describes one day of attendance.
type AttendanceResponse struct {
	ID         string                  `json:"id"`
	StaffID    string                  `json:"staff_id"`
	StaffName  string                  `json:"staff_name"`
	Date       string                  `json:"date"`
	CheckIn    *time.Time              `json:"check_in"`
	CheckOut   *time.Time              `json:"check_out"`
	TotalHours decimal.Decimal         `json:"total_hours"`
	Status     domain.AttendanceStatus `json:"status"`
	Notes      string                  `json:"notes"`
}

// NewAttendanceResponse maps a domain record.
func NewAttendanceResponse(a *domain.StaffAttendance) AttendanceResponse {
	return AttendanceResponse{
		ID:         a.ID,
		StaffID:    a.StaffID,
		StaffName:  a.StaffName,
		Date:       formatDate(a.Date),
		CheckIn:    a.CheckIn,
		CheckOut:   a.CheckOut,
		TotalHours: a.TotalHours,
		Status:     a.Status,
		Notes:      a.Notes,
	}
}

// NewAttendanceResponses maps a list, never returning nil.
func NewAttendanceResponses(records []domain.StaffAttendance) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(records))
	for i := range records {
		out = append(out, NewAttendanceResponse(&records[i]))
	}
	return out
}

// ReportResponse is the staff dashboard payload.
type ReportResponse struct {
	Period      string           `json:"period"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	HoursWorked decimal.Decimal  `json:"total_hours_worked"`
	Tasks       TaskCountsView   `json:"tasks"`
	Today       *TodayAttendance `json:"today,omitempty"`
}

// TaskCountsView summarises tasks in a report.
type TaskCountsView struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

// TodayAttendance is either an individual status or organisation counts.
type TodayAttendance struct {
	Status     domain.AttendanceStatus `json:"status,omitempty"`
	CheckIn    *time.Time              `json:"check_in,omitempty"`
	CheckOut   *time.Time              `json:"check_out,omitempty"`
	Present    *int                    `json:"present,omitempty"`
	Late       *int                    `json:"late,omitempty"`
	Absent     *int                    `json:"absent,omitempty"`
	TotalStaff *int                    `json:"total_staff,omitempty"`
}
