package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/repository"
	"github.com/teqwa/teqwa-core/internal/service"
)

// StaffDirectory manages staff profiles.
type StaffDirectory interface {
	CreateStaffProfile(ctx context.Context, actor *auth.Principal, input service.StaffProfileInput) (*domain.StaffMember, error)
	ListStaff(ctx context.Context, actor *auth.Principal, filter repository.StaffFilter) ([]domain.StaffMember, error)
}

// StaffHandler exposes staff profile endpoints.
type StaffHandler struct {
	staff StaffDirectory
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff StaffDirectory) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// Create handles POST /api/v1/staff/members.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	member, err := h.staff.CreateStaffProfile(c.UserContext(), actor, service.StaffProfileInput{
		UserID: req.UserID,
		Role:   req.Role,
		Phone:  req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.NewStaffResponse(member)))
}

// List handles GET /api/v1/staff/members.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	filter := repository.StaffFilter{}
	if role := c.Query("role"); role != "" {
		r := domain.StaffRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		v := active == "true" || active == "1"
		filter.Active = &v
	}
	members, err := h.staff.ListStaff(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		items = append(items, dto.NewStaffResponse(&members[i]))
	}
	return c.JSON(data(items))
}
