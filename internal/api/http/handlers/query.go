package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

// optionalID parses a positive integer query parameter; absent yields nil.
func optionalID(c *fiber.Ctx, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return &id, nil
}

func requiredID(c *fiber.Ctx, name string) (int64, error) {
	id, err := optionalID(c, name)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, apperrors.NewValidationError(name+" is required", map[string]any{"field": name})
	}
	return *id, nil
}

func optionalInt(c *fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return v, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
