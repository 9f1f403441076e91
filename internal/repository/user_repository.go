package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fintraq/auth-gateway/internal/model"
	"github.com/fintraq/auth-gateway/internal/utils"
)

// UserRepo reads and writes the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts a user, returning its id. The email
// is normalized before insert; a duplicate maps to ErrEmailExists via the
// MySQL duplicate-key error (1062), backed by the unique index.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = utils.NormalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = utils.NormalizeEmail(email)
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,role,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,role,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}
