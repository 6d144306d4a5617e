package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTCreate = `
INSERT INTO refresh_tokens (id, user_id, token_hash, issued_at, expires_at)
VALUES ($1, $2, $3, $4, $5);`

	// $2 is the caller's clock, not NOW().
	qRTFindLive = `
SELECT id, user_id, token_hash, issued_at, expires_at
FROM refresh_tokens
WHERE token_hash = $1 AND expires_at > $2
LIMIT 1;`

	qRTDelete = `
DELETE FROM refresh_tokens WHERE token_hash = $1;`

	qRTDeleteAllForUser = `
DELETE FROM refresh_tokens WHERE user_id = $1;`

	qRTDeleteExpired = `
DELETE FROM refresh_tokens WHERE expires_at <= $1;`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qRTCreate, t.ID, t.UserID, t.TokenHash, t.IssuedAt, t.ExpiresAt); err != nil {
		return fmt.Errorf("insert refresh: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) FindLive(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	if err := r.db.Pool.QueryRow(ctx, qRTFindLive, tokenHash, now).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrRefreshNotFound
		}
		return nil, fmt.Errorf("find live refresh: %w", err)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qRTDelete, tokenHash); err != nil {
		return fmt.Errorf("delete refresh: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qRTDeleteAllForUser, userID); err != nil {
		return fmt.Errorf("delete refresh for user: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qRTDeleteExpired, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh: %w", err)
	}
	return tag.RowsAffected(), nil
}
