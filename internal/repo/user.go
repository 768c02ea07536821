package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

const userColumns = `id, email, full_name, is_active, email_verified, created_at, updated_at, last_login_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create fails with ErrorConflict when the email is taken.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string, fullName *string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		email, passwordHash, fullName,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, mapError(err)
}

func (r *UserRepo) Get(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, mapError(err)
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (model.User, string, error) {
	var (
		u    model.User
		hash string
	)
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt, &hash)
	return u, hash, mapError(err)
}

func (r *UserRepo) TouchLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	return err
}

func (r *UserRepo) CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	return mapError(err)
}

// UserByToken resolves an unexpired token of an active user.
func (r *UserRepo) UserByToken(ctx context.Context, token string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT u.id
		FROM auth_tokens a JOIN users u ON u.id = a.user_id
		WHERE a.token = $1 AND a.expires_at > now() AND u.is_active
	`, token).Scan(&id)
	return id, mapError(err)
}

func (r *UserRepo) DeleteToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE token = $1`, token)
	return err
}
