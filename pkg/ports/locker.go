package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It lets several replicas sharing a sessions volume refuse to pair the same
// number twice at the same time.
type DistributedLocker interface {
	// TryLock acquires the lock for key without waiting.
	// It returns domain.ErrLockHeld if another owner holds it.
	// The lock expires after ttl if never released.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
