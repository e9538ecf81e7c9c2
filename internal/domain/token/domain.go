package token

import (
	"time"
)

// RefreshToken is one ledger row: the bcrypt digest of an issued refresh
// token plus its expiry. The raw token value is never persisted.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
}
