package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/api/dto"
	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/service"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

// AuthHandler serves account endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, err := h.service.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.Success(dto.NewUserResponse(user)))
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, token, exp, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: exp,
		User:      dto.NewUserResponse(user),
	}))
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Logout(c.UserContext(), principal.Token); err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"logged_out": true}))
}

// Me GET /users/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.NewUserResponse(user)))
}
