package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

const minPasswordLen = 8

// AuthService coordinates registration, login and token resolution.
type AuthService struct {
	users       repository.UserRepository
	revocations auth.RevocationStore
	tokenMgr    *auth.TokenManager
	bcryptCost  int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations auth.RevocationStore
}

// RegisterInput describes a new customer account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	revocations := deps.Revocations
	if revocations == nil {
		revocations = auth.NoopRevocationStore{}
	}
	return &AuthService{
		users:       deps.UserRepo,
		revocations: revocations,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:  cfg.Auth.BcryptCost,
	}
}

// Register creates a customer account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := s.newAccount(input, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return user, nil
}

// EnsurePharmacist provisions a pharmacist account. An existing account with
// the same email is left untouched and reported with created=false.
func (s *AuthService) EnsurePharmacist(ctx context.Context, input RegisterInput) (user *domain.User, created bool, err error) {
	user, err = s.newAccount(input, domain.RolePharmacist)
	if err != nil {
		return nil, false, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, nil
		}
		return nil, false, apperrors.NewPersistenceError(err)
	}
	return user, true, nil
}

func (s *AuthService) newAccount(input RegisterInput, role domain.Role) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	username, err := requiredText("username", input.Username)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLen {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"field": "password", "min": minPasswordLen})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Roles:        []domain.Role{role},
	}, nil
}

// Authenticate verifies credentials against active users.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetActiveByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// ResolveToken maps a bearer token to its active, non-revoked user.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("token revoked")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if user.Deleted {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	return user, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
