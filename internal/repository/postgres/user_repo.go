package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NordCoder/AuthGate/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserCols = `id, email, password_hash, email_verified, role, oauth_id, created_at, updated_at`

	qUserInsert = `
INSERT INTO users (email, password_hash, email_verified, oauth_id)
VALUES ($1, $2, $3, NULLIF($4, ''))
RETURNING ` + qUserCols + `;`

	qUserByID = `
SELECT ` + qUserCols + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + qUserCols + `
FROM users
WHERE email = $1;`

	qUserByOAuthID = `
SELECT ` + qUserCols + `
FROM users
WHERE oauth_id = $1;`

	qUserSetVerified = `
UPDATE users SET email_verified = $2, updated_at = NOW() WHERE id = $1;`

	qUserSetPasswordHash = `
UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1;`

	// Linking a third-party identity marks the email verified: the provider
	// is treated as an authoritative verifier of the address.
	qUserLinkOAuthID = `
UPDATE users SET oauth_id = $2, email_verified = TRUE, updated_at = NOW() WHERE email = $1;`

	qUserDelete = `
DELETE FROM users WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert, u.Email, u.PasswordHash, u.Verified, u.OAuthID)
	if err := scanUser(row, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByOAuthID(ctx context.Context, oauthID string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByOAuthID, oauthID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetVerified(ctx context.Context, id int64, verified bool) (bool, error) {
	return r.exec(ctx, "user set verified", qUserSetVerified, id, verified)
}

func (r *UserRepo) SetPasswordHash(ctx context.Context, id int64, hash string) (bool, error) {
	return r.exec(ctx, "user set password hash", qUserSetPasswordHash, id, hash)
}

func (r *UserRepo) LinkOAuthID(ctx context.Context, email, oauthID string) (bool, error) {
	return r.exec(ctx, "user link oauth id", qUserLinkOAuthID, email, oauthID)
}

func (r *UserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, "user delete", qUserDelete, id)
}

func (r *UserRepo) exec(ctx context.Context, op, sql string, args ...any) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	var oauthID *string
	if err := row.Scan(&out.ID, &out.Email, &out.PasswordHash, &out.Verified,
		&out.Role, &oauthID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	if oauthID != nil {
		out.OAuthID = *oauthID
	} else {
		out.OAuthID = ""
	}
	return nil
}
