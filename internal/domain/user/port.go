package user

import "context"

// Repo is the identity-store contract. Mutators returning a bool report
// whether any row was affected so callers can distinguish "missing subject"
// from a store failure.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByOAuthID(ctx context.Context, oauthID string) (*User, error)
	SetVerified(ctx context.Context, id int64, verified bool) (bool, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) (bool, error)
	LinkOAuthID(ctx context.Context, email, oauthID string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
