package ports

import "context"

// SessionRepository keeps the single live token of each user and backs
// server-side revocation.
type SessionRepository interface {
	// Replace supersedes any existing session for uid in one atomic write.
	Replace(ctx context.Context, uid, token string) error
	// Revoke removes every session of uid. Revoking nothing is not an error.
	Revoke(ctx context.Context, uid string) error
	// IsLive reports whether (uid, token) is exactly the stored session.
	IsLive(ctx context.Context, uid, token string) (bool, error)
}
