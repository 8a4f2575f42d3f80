package domain

import "time"

// StaffRole enumerates mosque staff positions.
type StaffRole string

const (
	StaffRoleImam          StaffRole = "imam"
	StaffRoleTeacher       StaffRole = "teacher"
	StaffRoleAdministrator StaffRole = "administrator"
	StaffRoleMaintenance   StaffRole = "maintenance"
	StaffRoleSecurity      StaffRole = "security"
	StaffRoleVolunteer     StaffRole = "volunteer"
)

// StaffMember is the staff profile attached to a user account.
type StaffMember struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Role       StaffRole
	Phone      string
	Active     bool
	JoinedDate time.Time
}
