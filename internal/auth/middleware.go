package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// TokenResolver maps a bearer token to an active user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	User  *domain.User
	Token string
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	resolver TokenResolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(resolver TokenResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	user, err := m.resolver.ResolveToken(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.Locals(principalKey, &Principal{User: user, Token: token})
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil && principal.User != nil
}
