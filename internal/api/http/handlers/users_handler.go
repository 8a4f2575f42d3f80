package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/service"
)

// AccountService is the auth surface used by UsersHandler.
type AccountService interface {
	RegisterUser(ctx context.Context, input service.RegisterInput) (*domain.User, string, time.Time, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error)
}

// UsersHandler exposes auth endpoints for end-users.
type UsersHandler struct {
	auth AccountService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService AccountService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/v1/auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.RegisterUser(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(data(fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
	}))
}

// Login handles POST /api/v1/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(data(fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
	}))
}
