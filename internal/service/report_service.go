package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/repository"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

// ReportPeriod selects how far back attendance hours are summed.
type ReportPeriod string

const (
	ReportDaily   ReportPeriod = "daily"
	ReportWeekly  ReportPeriod = "weekly"
	ReportMonthly ReportPeriod = "monthly"
)

// ParseReportPeriod defaults to daily for empty input.
func ParseReportPeriod(raw string) (ReportPeriod, error) {
	switch ReportPeriod(raw) {
	case "", ReportDaily:
		return ReportDaily, nil
	case ReportWeekly, ReportMonthly:
		return ReportPeriod(raw), nil
	}
	return "", apperrors.NewValidationError("invalid request",
		map[string]any{"fields": map[string]any{"period": "must be one of daily weekly monthly"}})
}

// StaffReport aggregates attendance and task activity.
type StaffReport struct {
	Period      ReportPeriod
	From        time.Time
	To          time.Time
	HoursWorked decimal.Decimal
	Tasks       repository.TaskCounts
	Today       TodaySnapshot
}

// TodaySnapshot describes today's attendance. Individual fields are set for a
// single staff member, the counts for the whole organisation.
type TodaySnapshot struct {
	Individual       bool
	AttendanceStatus domain.AttendanceStatus
	CheckIn          *time.Time
	CheckOut         *time.Time
	PresentCount     int
	LateCount        int
	AbsentCount      int
	TotalStaff       int
}

// ReportService builds staff dashboards.
type ReportService struct {
	attendance repository.AttendanceRepository
	tasks      repository.TaskRepository
	staff      repository.StaffRepository
	loc        *time.Location
	now        func() time.Time
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	AttendanceRepo repository.AttendanceRepository
	TaskRepo       repository.TaskRepository
	StaffRepo      repository.StaffRepository
	Location       *time.Location
	Clock          func() time.Time
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	svc := &ReportService{
		attendance: deps.AttendanceRepo,
		tasks:      deps.TaskRepo,
		staff:      deps.StaffRepo,
		loc:        deps.Location,
		now:        deps.Clock,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// StaffReport computes the report for the requested period. Staff callers
// are always scoped to their own profile.
func (s *ReportService) StaffReport(ctx context.Context, actor *auth.Principal, period ReportPeriod, staffID *string) (*StaffReport, error) {
	if !actor.IsAdmin() {
		if actor == nil || actor.Staff == nil {
			return nil, apperrors.NewForbidden("staff access required")
		}
		staffID = &actor.Staff.ID
	}

	today := s.now().In(s.loc)
	from := today
	switch period {
	case ReportWeekly:
		from = today.AddDate(0, 0, -7)
	case ReportMonthly:
		from = today.AddDate(0, 0, -30)
	}

	hours, err := s.attendance.SumHours(ctx, staffID, from, today)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts, err := s.tasks.Counts(ctx, repository.TaskCountFilter{AssigneeID: staffID, Today: today})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := &StaffReport{
		Period:      period,
		From:        from,
		To:          today,
		HoursWorked: hours,
		Tasks:       counts,
	}
	if period == ReportDaily {
		snapshot, err := s.todaySnapshot(ctx, staffID, today)
		if err != nil {
			return nil, err
		}
		report.Today = snapshot
	}
	return report, nil
}

func (s *ReportService) todaySnapshot(ctx context.Context, staffID *string, today time.Time) (TodaySnapshot, error) {
	if staffID != nil {
		snap := TodaySnapshot{Individual: true, AttendanceStatus: domain.AttendanceAbsent}
		record, err := s.attendance.GetForDate(ctx, *staffID, today)
		switch {
		case err == nil:
			snap.AttendanceStatus = record.Status
			snap.CheckIn = record.CheckIn
			snap.CheckOut = record.CheckOut
		case !repository.IsNotFound(err):
			return TodaySnapshot{}, apperrors.MapError(err)
		}
		return snap, nil
	}

	byStatus, err := s.attendance.CountByStatus(ctx, nil, today)
	if err != nil {
		return TodaySnapshot{}, apperrors.MapError(err)
	}
	total, err := s.staff.CountActive(ctx)
	if err != nil {
		return TodaySnapshot{}, apperrors.MapError(err)
	}
	snap := TodaySnapshot{
		PresentCount: byStatus[domain.AttendancePresent],
		LateCount:    byStatus[domain.AttendanceLate],
		TotalStaff:   total,
	}
	snap.AbsentCount = total - snap.PresentCount
	if snap.AbsentCount < 0 {
		snap.AbsentCount = 0
	}
	return snap, nil
}
