package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
)

// AttendanceKeeper is the attendance surface used by AttendanceHandler.
type AttendanceKeeper interface {
	ClockIn(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffAttendance, error)
	ClockOut(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffAttendance, error)
	ToggleAttendance(ctx context.Context, actor *auth.Principal, staffID string) (*domain.StaffAttendance, error)
	ListByDate(ctx context.Context, actor *auth.Principal, day *time.Time) ([]domain.StaffAttendance, error)
	WorkLog(ctx context.Context, actor *auth.Principal, staffID *string) ([]domain.StaffAttendance, error)
}

// AttendanceHandler exposes clock-in, clock-out and attendance listings.
type AttendanceHandler struct {
	attendance AttendanceKeeper
	loc        *time.Location
}

// NewAttendanceHandler constructs handler. loc interprets date filters.
func NewAttendanceHandler(attendance AttendanceKeeper, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceHandler{attendance: attendance, loc: loc}
}

// ClockIn handles POST /api/v1/staff/attendance/clock-in.
func (h *AttendanceHandler) ClockIn(c *fiber.Ctx) error {
	return h.clock(c, h.attendance.ClockIn)
}

// ClockOut handles POST /api/v1/staff/attendance/clock-out.
func (h *AttendanceHandler) ClockOut(c *fiber.Ctx) error {
	return h.clock(c, h.attendance.ClockOut)
}

func (h *AttendanceHandler) clock(c *fiber.Ctx, fn func(context.Context, *auth.Principal, string) (*domain.StaffAttendance, error)) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ClockRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	record, err := fn(c.UserContext(), actor, req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewAttendanceResponse(record)))
}

// Toggle handles POST /api/v1/staff/attendance/toggle.
func (h *AttendanceHandler) Toggle(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ToggleAttendanceRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	record, err := h.attendance.ToggleAttendance(c.UserContext(), actor, req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewAttendanceResponse(record)))
}

// List handles GET /api/v1/staff/attendance.
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var q dto.AttendanceQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	day, err := parseDate(q.Date, h.loc)
	if err != nil {
		return err
	}
	records, err := h.attendance.ListByDate(c.UserContext(), actor, day)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewAttendanceResponses(records)))
}

// WorkingHours handles GET /api/v1/staff/working-hours.
func (h *AttendanceHandler) WorkingHours(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var q dto.StaffFilterQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	records, err := h.attendance.WorkLog(c.UserContext(), actor, optionalString(q.StaffID))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewAttendanceResponses(records)))
}
