package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fintraq/auth-gateway/internal/model"
)

// TokenRepo persists refresh-token records. Only SHA-256 hashes of the raw
// tokens are stored; every lookup is by hash.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh-token record for a user.
func (r *TokenRepo) Store(ctx context.Context, rec model.RefreshTokenRecord) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, user_agent, ip) VALUES (?,?,?,?,?)",
		rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.UserAgent, rec.IP)
	return err
}

// FindByHash returns the record owning a token hash, expired or not. Expiry
// policy belongs to the caller, which deletes stale rows as it finds them.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshTokenRecord, error) {
	var rec model.RefreshTokenRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token_hash,expires_at,user_agent,ip,created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.UserAgent, &rec.IP, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshTokenRecord{}, ErrTokenNotFound
	}
	return rec, err
}

// DeleteByHash removes a record by token hash. Deleting an absent row is not
// an error; logout and lazy expiry cleanup are best-effort.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// Rotate atomically replaces oldHash with newRec inside one transaction. The
// delete must remove exactly one row; when two requests race on the same
// token only one delete succeeds, so a rotated-out token can never be
// rotated a second time. The loser gets ErrTokenNotFound.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, oldHash string, newRec model.RefreshTokenRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=? AND user_id=?", oldHash, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrTokenNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, user_agent, ip) VALUES (?,?,?,?,?)",
		newRec.UserID, newRec.TokenHash, newRec.ExpiresAt, newRec.UserAgent, newRec.IP); err != nil {
		return err
	}
	return tx.Commit()
}

// PruneExpired deletes all of a user's refresh tokens whose expiry has
// passed. Called opportunistically at login so the per-user list stays
// bounded without a background job.
func (r *TokenRepo) PruneExpired(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND expires_at<=?", userID, now)
	return err
}
