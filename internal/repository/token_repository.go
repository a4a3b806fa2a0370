package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devmadlani/auth-service/internal/model"
)

// TokenRepo persists refresh token records. A record is created once and
// only ever deleted; its id is the `id` claim of the signed token.
type TokenRepo struct{ db DBTX }

func NewTokenRepo(db DBTX) *TokenRepo { return &TokenRepo{db: db} }

// Create inserts t and sets t.ID.
func (r *TokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	const q = "INSERT INTO refresh_tokens (user_id, expires_at, created_at) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, t.UserID, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound for revoked (deleted) or unknown records.
func (r *TokenRepo) GetByID(ctx context.Context, id uint64) (model.RefreshToken, error) {
	const q = "SELECT id, user_id, expires_at, created_at FROM refresh_tokens WHERE id = ?"
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return t, err
}

// Delete removes record id and reports whether it existed.
func (r *TokenRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpired removes records that expired before t.
func (r *TokenRepo) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", t)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
