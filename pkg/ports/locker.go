package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock. Calling it
// after the TTL expired must not release a lock now held by someone else.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one session across replicas.
// The session manager takes it around every operation that may touch the
// session's tree or its transition state.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl even if the holder never unlocks.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
