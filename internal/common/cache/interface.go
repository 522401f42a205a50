package cache

import (
	"context"
	"time"
)

// Locker guards a job so that only one replica runs it at a time.
type Locker interface {
	// TryLock acquires key for ttl. ok is false when another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
	Close() error
}

// Lease is a held lock.
type Lease interface {
	Key() string
	// Unlock releases the lock if this lease still owns it.
	Unlock(ctx context.Context) error
}
