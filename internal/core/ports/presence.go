package ports

import "context"

// PresenceTracker flips the online flag as connections come and go.
type PresenceTracker interface {
	MarkOnline(ctx context.Context, uid, connID string)
	MarkOffline(ctx context.Context, uid, connID string)
}
