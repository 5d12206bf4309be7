package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUserRepository stores accounts in the users table created by the
// embedded migrations.
type PostgresUserRepository struct {
	db pgxQuerier
}

// NewPostgresUserRepository accepts a *pgxpool.Pool or anything with the
// same query surface.
func NewPostgresUserRepository(db pgxQuerier) *PostgresUserRepository {
	if db == nil {
		panic("backend: pgx pool required")
	}
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	info, err := json.Marshal(user.BasicInfo)
	if err != nil {
		return fmt.Errorf("backend: encode basic info: %w", err)
	}
	query := `
		INSERT INTO users (id, username, password_hash, basic_info)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
		RETURNING created_at
	`
	var createdAt time.Time
	err = r.db.QueryRow(ctx, query, user.ID, strings.ToLower(user.Username), user.PasswordHash, info).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("backend: insert user: %w", err)
	}
	user.CreatedAt = createdAt
	return nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, password_hash, basic_info, created_at
		FROM users
		WHERE username = $1
	`
	var (
		user User
		info []byte
	)
	err := r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(username))).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &info, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("backend: select user: %w", err)
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &user.BasicInfo); err != nil {
			return nil, fmt.Errorf("backend: decode basic info: %w", err)
		}
	}
	return &user, nil
}

// DeleteByUsername removes an account. Missing accounts are not an error.
func (r *PostgresUserRepository) DeleteByUsername(ctx context.Context, username string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE username = $1`, strings.ToLower(strings.TrimSpace(username))); err != nil {
		return fmt.Errorf("backend: delete user: %w", err)
	}
	return nil
}
