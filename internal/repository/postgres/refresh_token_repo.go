package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/AuthGate/internal/domain/token"
)

var _ token.Ledger = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTRecord = `
INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id;`

	// Most recently expiring unexpired row wins; with a fixed TTL that is
	// the most recently issued one.
	qRTLatestValid = `
SELECT id, user_id, token_hash, expires_at
FROM refresh_tokens
WHERE user_id = $1 AND expires_at > NOW()
ORDER BY expires_at DESC
LIMIT 1;`

	qRTInvalidateAll = `
DELETE FROM refresh_tokens WHERE user_id = $1;`
)

func (r *RefreshTokenRepo) Record(ctx context.Context, userID int64, digest string, ttl time.Duration) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	expiresAt := time.Now().UTC().Add(ttl)
	var id int64
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qRTRecord, userID, digest, expiresAt).Scan(&id); err != nil {
		return fmt.Errorf("record refresh: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) LatestValid(ctx context.Context, userID int64) (*token.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t token.RefreshToken
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qRTLatestValid, userID).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest valid refresh: %w", err)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) InvalidateAll(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTInvalidateAll, userID)
	if err != nil {
		return 0, fmt.Errorf("invalidate refresh: %w", err)
	}
	return tag.RowsAffected(), nil
}
