package dto

import (
	"time"

	"github.com/teqwa/teqwa-core/internal/domain"
)

// CreateStaffRequest attaches a staff profile to an existing account.
type CreateStaffRequest struct {
	UserID string           `json:"user_id" validate:"required,uuid"`
	Role   domain.StaffRole `json:"role" validate:"required,oneof=imam teacher administrator maintenance security volunteer"`
	Phone  string           `json:"phone" validate:"max=20"`
}

// StaffResponse describes a staff profile.
type StaffResponse struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Role       domain.StaffRole `json:"role"`
	Phone      string           `json:"phone"`
	Active     bool             `json:"is_active"`
	JoinedDate string           `json:"joined_date"`
}

// NewStaffResponse maps a staff profile.
func NewStaffResponse(s *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		Name:       s.Name,
		Email:      s.Email,
		Role:       s.Role,
		Phone:      s.Phone,
		Active:     s.Active,
		JoinedDate: formatDate(s.JoinedDate),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"
