package session

import (
	"context"
	"fmt"
	"testing"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.WithLock(ctx, sid, func(context.Context) error { return nil })
	}

	lockCount := len(mgr.locks)
	t.Logf("Lock sections: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory", lockCount)
	}
}
