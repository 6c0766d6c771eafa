package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryFactory(created *int) session.Factory {
	var mu sync.Mutex
	return func(ctx context.Context, id string) (*session.Session, error) {
		mu.Lock()
		*created++
		mu.Unlock()

		doc := memory.NewDocument()
		tr, err := vista.NewFromDocument(doc,
			vista.WithPlatform(memory.NewPlatform()),
			vista.WithSessionID(id),
		)
		if err != nil {
			return nil, err
		}
		return &session.Session{ID: id, Document: doc, T: tr}, nil
	}
}

// countingLocker records lock usage to verify the distributed path.
type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	failWith error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.locks++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_OpenIsIdempotent(t *testing.T) {
	created := 0
	mgr := session.NewManager(memoryFactory(&created))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := mgr.Open(ctx, "atomic-init")
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"atomic-init"}, mgr.List())
}

func TestManager_OpenGeneratesID(t *testing.T) {
	created := 0
	mgr := session.NewManager(memoryFactory(&created))

	s, err := mgr.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestManager_NotFound(t *testing.T) {
	mgr := session.NewManager(memoryFactory(new(int)))
	ctx := context.Background()

	_, err := mgr.Get("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = mgr.Do(ctx, "missing", func(context.Context, *session.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, mgr.Close(ctx, "missing"), domain.ErrSessionNotFound)

	_, _, err = mgr.Subscribe("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	mgr := session.NewManager(func(context.Context, string) (*session.Session, error) {
		return nil, boom
	})

	_, err := mgr.Open(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mgr.List())
}

func TestManager_CompletionFanOut(t *testing.T) {
	journal := memory.NewJournal()
	mgr := session.NewManager(memoryFactory(new(int)), session.WithJournal(journal))
	ctx := context.Background()

	_, err := mgr.Open(ctx, "s1")
	require.NoError(t, err)

	events, cancel, err := mgr.Subscribe("s1")
	require.NoError(t, err)
	defer cancel()

	err = mgr.Do(ctx, "s1", func(ctx context.Context, s *session.Session) error {
		if err := s.T.Arm(domain.NewRequest(domain.Entry{})); err != nil {
			return err
		}
		if err := s.T.Root().SetAttribute("class", "next"); err != nil {
			return err
		}
		s.T.Settle(10)
		return nil
	})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, 1, ev.Applied)
	case <-time.After(time.Second):
		t.Fatal("expected a completion event")
	}

	history, err := mgr.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Applied)
}

func TestManager_CloseClosesSubscriptions(t *testing.T) {
	mgr := session.NewManager(memoryFactory(new(int)))
	ctx := context.Background()

	s, err := mgr.Open(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s.T.Sheet())

	events, cancel, err := mgr.Subscribe("s1")
	require.NoError(t, err)

	require.NoError(t, mgr.Close(ctx, "s1"))
	_, open := <-events
	assert.False(t, open)
	cancel()

	assert.Empty(t, mgr.List())
	assert.Empty(t, s.Document.Head().Children(), "style element removed on close")
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	mgr := session.NewManager(memoryFactory(new(int)), session.WithLocker(locker))
	ctx := context.Background()

	_, err := mgr.Open(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, mgr.Do(ctx, "s1", func(context.Context, *session.Session) error { return nil }))

	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)

	locker.failWith = errors.New("contended")
	err = mgr.Do(ctx, "s1", func(context.Context, *session.Session) error {
		t.Fatal("must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, locker.failWith)
}

func TestManager_Shutdown(t *testing.T) {
	mgr := session.NewManager(memoryFactory(new(int)))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := mgr.Open(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Shutdown(ctx))
	assert.Empty(t, mgr.List())
}

func TestSession_Snapshot(t *testing.T) {
	mgr := session.NewManager(memoryFactory(new(int)))
	s, err := mgr.Open(context.Background(), "s1")
	require.NoError(t, err)

	assert.Contains(t, s.Snapshot(), "<body>")
}
