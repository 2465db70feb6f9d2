package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

// RequireRoles ensures the caller holds at least one of allowed.
// With no roles any authenticated caller passes.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) > 0 && !principal.User.HasAnyRole(allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
