package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, username, password_hash, roles, deleted)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.PasswordHash,
		rolesToStrings(user.Roles),
		user.Deleted,
	).Scan(&user.ID, &user.CreatedAt)
	return mapPgError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, email, username, password_hash, roles, deleted, created_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, username, password_hash, roles, deleted, created_at
        FROM users WHERE email=$1 AND deleted=FALSE`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user  domain.User
		roles []string
	)
	if err := conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&roles,
		&user.Deleted,
		&user.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	user.Roles = stringsToRoles(roles)
	return &user, nil
}

func rolesToStrings(roles []domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func stringsToRoles(values []string) []domain.Role {
	out := make([]domain.Role, 0, len(values))
	for _, v := range values {
		out = append(out, domain.Role(v))
	}
	return out
}
