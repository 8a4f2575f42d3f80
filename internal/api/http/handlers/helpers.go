package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/validation"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

// bindJSON decodes the request body into req and validates it.
func bindJSON(c *fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return validation.Struct(req)
}

// bindQuery decodes query parameters into req and validates it.
func bindQuery(c *fiber.Ctx, req any) error {
	if err := c.QueryParser(req); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	return validation.Struct(req)
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p == nil || p.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

// pathID returns the named UUID route parameter. Malformed ids cannot match
// any row, so they are reported as a missing resource.
func pathID(c *fiber.Ctx, name, resource string) (string, error) {
	raw := c.Params(name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperrors.NewNotFound(resource, map[string]any{name: raw})
	}
	return raw, nil
}

// parseDate reads a YYYY-MM-DD value in loc. Empty input yields nil.
func parseDate(raw string, loc *time.Location) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dto.DateLayout, raw, loc)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid request",
			map[string]any{"fields": map[string]any{"date": "must be YYYY-MM-DD"}})
	}
	return &t, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func data(v any) fiber.Map {
	return fiber.Map{"data": v}
}
