package token

import (
	"context"
	"time"
)

// Ledger persists refresh-token digests. Multiple live rows per user are
// expected (multi-device); expired rows are filtered at read time, no sweep.
type Ledger interface {
	// Record inserts a new entry with expiry = now + ttl. Prior entries are
	// neither revoked nor deduplicated.
	Record(ctx context.Context, userID int64, digest string, ttl time.Duration) error
	// LatestValid returns the still-unexpired entry with the greatest expiry,
	// i.e. the most recently issued one.
	LatestValid(ctx context.Context, userID int64) (*RefreshToken, error)
	// InvalidateAll deletes every entry for the user and reports how many
	// rows were removed. Calling it twice is safe.
	InvalidateAll(ctx context.Context, userID int64) (int64, error)
}
