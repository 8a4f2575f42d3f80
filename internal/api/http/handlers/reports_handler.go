package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/service"
)

// Reporter builds staff reports.
type Reporter interface {
	StaffReport(ctx context.Context, actor *auth.Principal, period service.ReportPeriod, staffID *string) (*service.StaffReport, error)
}

// ReportsHandler exposes the staff dashboard.
type ReportsHandler struct {
	reports Reporter
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports Reporter) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Staff handles GET /api/v1/staff/reports.
func (h *ReportsHandler) Staff(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var q dto.StaffFilterQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	period, err := service.ParseReportPeriod(q.Period)
	if err != nil {
		return err
	}
	report, err := h.reports.StaffReport(c.UserContext(), actor, period, optionalString(q.StaffID))
	if err != nil {
		return err
	}
	return c.JSON(data(reportResponse(report)))
}

func reportResponse(r *service.StaffReport) dto.ReportResponse {
	resp := dto.ReportResponse{
		Period:      string(r.Period),
		From:        r.From.Format(dto.DateLayout),
		To:          r.To.Format(dto.DateLayout),
		HoursWorked: r.HoursWorked,
		Tasks: dto.TaskCountsView{
			Total:     r.Tasks.Total,
			Completed: r.Tasks.Completed,
			Pending:   r.Tasks.Pending,
			Overdue:   r.Tasks.Overdue,
		},
	}
	if r.Period != service.ReportDaily {
		return resp
	}
	today := &dto.TodayAttendance{}
	if r.Today.Individual {
		today.Status = r.Today.AttendanceStatus
		today.CheckIn = r.Today.CheckIn
		today.CheckOut = r.Today.CheckOut
	} else {
		today.Present = &r.Today.PresentCount
		today.Late = &r.Today.LateCount
		today.Absent = &r.Today.AbsentCount
		today.TotalStaff = &r.Today.TotalStaff
	}
	resp.Today = today
	return resp
}
