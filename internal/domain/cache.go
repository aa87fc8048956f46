package domain

import (
	"context"
	"time"
)

// ReceiptCache is the per-user read-path cache of receipt list snapshots.
// It is an optimization only: every implementation may miss at any time and
// the system must stay correct when Get always misses.
type ReceiptCache interface {
	// Get returns the cached payload for the user, or (nil, nil) on miss.
	Get(ctx context.Context, userID string) ([]byte, error)
	Put(ctx context.Context, userID string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}
