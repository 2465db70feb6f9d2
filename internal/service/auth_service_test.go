package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

func newAuthService(t *testing.T, revocations auth.RevocationStore) (*AuthService, repository.Repositories) {
	t.Helper()
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
	return NewAuthService(cfg, AuthDependencies{UserRepo: repos.Users, Revocations: revocations}), repos
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Username: "alice", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, []domain.Role{domain.RoleCustomer}, user.Roles)
	assert.NotEqual(t, "password1", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Email: "ALICE@example.com", Username: "other", Password: "password1"})
	requireCode(t, err, apperrors.CodeConflict)

	loggedIn, token, exp, err := svc.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())

	resolved, err := svc.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	_, _, _, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, _, _, err = svc.Login(ctx, "nobody@example.com", "password1")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestEnsurePharmacistIsIdempotent(t *testing.T) {
	svc, repos := newAuthService(t, nil)
	ctx := context.Background()
	input := RegisterInput{Email: "Staff@Example.com", Username: "staff", Password: "pharma-pass"}

	user, created, err := svc.EnsurePharmacist(ctx, input)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, []domain.Role{domain.RolePharmacist}, user.Roles)

	again, created, err := svc.EnsurePharmacist(ctx, RegisterInput{Email: "staff@example.com", Username: "renamed", Password: "other-pass"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, again)

	stored, err := repos.Users.GetActiveByEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	assert.Equal(t, "staff", stored.Username)

	loggedIn, _, _, err := svc.Login(ctx, "staff@example.com", "pharma-pass")
	require.NoError(t, err)
	assert.True(t, loggedIn.HasRole(domain.RolePharmacist))
	assert.False(t, loggedIn.HasRole(domain.RoleCustomer))

	_, _, err = svc.EnsurePharmacist(ctx, RegisterInput{Email: "x@example.com", Username: "x", Password: "short"})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	ctx := context.Background()

	cases := map[string]RegisterInput{
		"email":    {Email: "not-an-email", Username: "u", Password: "password1"},
		"username": {Email: "u@example.com", Username: " ", Password: "password1"},
		"password": {Email: "u@example.com", Username: "u", Password: "short"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, input)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestResolveTokenRejectsDeletedUsers(t *testing.T) {
	svc, repos := newAuthService(t, nil)
	ctx := context.Background()

	user := &domain.User{Email: "gone@example.com", Username: "gone", PasswordHash: "x", Roles: []domain.Role{domain.RoleCustomer}, Deleted: true}
	require.NoError(t, repos.Users.Create(ctx, user))

	token, _, err := auth.NewTokenManager("test-secret", 5).GenerateToken(user)
	require.NoError(t, err)

	_, err = svc.ResolveToken(ctx, token)
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = svc.ResolveToken(ctx, "garbage")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, _ := newAuthService(t, auth.NewRedisRevocationStore(client))
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "a", Password: "password1"})
	require.NoError(t, err)
	_, token, _, err := svc.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.ResolveToken(ctx, token)
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, fresh, _, err := svc.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	_, err = svc.ResolveToken(ctx, fresh)
	assert.NoError(t, err)

	mr.Close()
	_, err = svc.ResolveToken(ctx, fresh)
	requireCode(t, err, apperrors.CodePersistence)
}

func TestLogoutWithoutRedisIsNoop(t *testing.T) {
	svc, _ := newAuthService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "a", Password: "password1"})
	require.NoError(t, err)
	_, token, _, err := svc.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.ResolveToken(ctx, token)
	assert.NoError(t, err)
}
