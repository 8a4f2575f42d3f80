package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/repository"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

const workLogLimit = 20

// AttendanceService records staff clock-ins and clock-outs.
type AttendanceService struct {
	attendance repository.AttendanceRepository
	staff      repository.StaffRepository
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// AttendanceDependencies bundles collaborators for the attendance service.
type AttendanceDependencies struct {
	AttendanceRepo repository.AttendanceRepository
	StaffRepo      repository.StaffRepository
	Logger         *zap.Logger
	Location       *time.Location
	Clock          func() time.Time
}

// NewAttendanceService constructs the service.
func NewAttendanceService(deps AttendanceDependencies) *AttendanceService {
	svc := &AttendanceService{
		attendance: deps.AttendanceRepo,
		staff:      deps.StaffRepo,
		logger:     deps.Logger,
		loc:        deps.Location,
		now:        deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Today returns the current calendar day in the service location.
func (s *AttendanceService) Today() time.Time {
	return s.now().In(s.loc)
}

// ClockIn marks the staff member present for today and stamps the check-in
// time if none is recorded yet. Calling it again is harmless.
func (s *AttendanceService) ClockIn(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffAttendance, error) {
	staff, err := s.resolveStaff(ctx, actor, staffID)
	if err != nil {
		return nil, err
	}
	now := s.Today()
	record, err := s.attendance.Ensure(ctx, staff.ID, now, domain.AttendancePresent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if record.CheckIn == nil {
		record.CheckIn = &now
		record.Status = domain.AttendancePresent
		if err := s.attendance.Update(ctx, record); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	s.logger.Info("staff clocked in", zap.String("staff_id", staff.ID), zap.Time("check_in", *record.CheckIn))
	return record, nil
}

// ClockOut stamps the check-out time and computes hours worked.
func (s *AttendanceService) ClockOut(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffAttendance, error) {
	staff, err := s.resolveStaff(ctx, actor, staffID)
	if err != nil {
		return nil, err
	}
	now := s.Today()
	record, err := s.attendance.GetForDate(ctx, staff.ID, now)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("clock-in record for today", map[string]any{"staff_id": staff.ID})
		}
		return nil, apperrors.MapError(err)
	}

	record.CheckOut = &now
	record.Status = domain.AttendancePresent
	if record.CheckIn != nil {
		if hours := HoursBetween(*record.CheckIn, now); hours.IsPositive() {
			record.TotalHours = hours
		}
	}
	if err := s.attendance.Update(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("staff clocked out",
		zap.String("staff_id", staff.ID),
		zap.String("total_hours", record.TotalHours.String()))
	return record, nil
}

// ToggleAttendance flips today's status between present and absent,
// creating the row as present. Admin only.
func (s *AttendanceService) ToggleAttendance(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffAttendance, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can toggle attendance")
	}
	staff, err := s.getStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	existing, err := s.attendance.GetForDate(ctx, staff.ID, today)
	switch {
	case err == nil:
		if existing.Status == domain.AttendancePresent {
			existing.Status = domain.AttendanceAbsent
		} else {
			existing.Status = domain.AttendancePresent
		}
		if err := s.attendance.Update(ctx, existing); err != nil {
			return nil, apperrors.MapError(err)
		}
		return existing, nil
	case repository.IsNotFound(err):
		created, err := s.attendance.Ensure(ctx, staff.ID, today, domain.AttendancePresent)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return created, nil
	default:
		return nil, apperrors.MapError(err)
	}
}

// ListByDate returns all attendance rows for a day. Admin only.
func (s *AttendanceService) ListByDate(ctx context.Context, actor *auth.Principal, day *time.Time) ([]domain.StaffAttendance, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can view attendance")
	}
	target := s.Today()
	if day != nil {
		target = *day
	}
	records, err := s.attendance.ListByDate(ctx, target)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// WorkLog returns the most recent checked-in days. Staff only see their own.
func (s *AttendanceService) WorkLog(ctx context.Context, actor *auth.Principal, staffID *string) ([]domain.StaffAttendance, error) {
	filter := repository.WorkLogFilter{StaffID: staffID, Limit: workLogLimit}
	if !actor.IsAdmin() {
		if actor.Staff == nil {
			return nil, apperrors.NewForbidden("staff access required")
		}
		filter.StaffID = &actor.Staff.ID
	}
	records, err := s.attendance.ListWorkLog(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// resolveStaff picks the target profile: an explicit id for admins or one's
// own profile, otherwise the caller's profile.
func (s *AttendanceService) resolveStaff(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffMember, error) {
	if actor == nil || actor.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if staffID == "" {
		if actor.Staff == nil {
			return nil, apperrors.NewNotFound("staff profile", nil)
		}
		return actor.Staff, nil
	}
	if !actor.IsAdmin() && (actor.Staff == nil || actor.Staff.ID != staffID) {
		return nil, apperrors.NewForbidden("cannot record attendance for another staff member")
	}
	return s.getStaff(ctx, staffID)
}

func (s *AttendanceService) getStaff(ctx context.Context, staffID string) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("staff profile", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// HoursBetween returns the elapsed hours from start to end rounded to two decimals.
func HoursBetween(start, end time.Time) decimal.Decimal {
	seconds := decimal.NewFromFloat(end.Sub(start).Seconds())
	return seconds.Div(decimal.NewFromInt(3600)).Round(2)
}
