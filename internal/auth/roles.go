package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/domain"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

// RequireRole ensures the caller holds one of the allowed account roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaffOrAdmin admits admins and users with a staff profile.
func RequireStaffOrAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.IsAdmin() && principal.Staff == nil {
			return apperrors.NewForbidden("staff access required")
		}
		return c.Next()
	}
}
