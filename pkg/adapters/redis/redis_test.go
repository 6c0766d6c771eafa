package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aretw0/vista/pkg/adapters/redis"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisJournal_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunJournalContract(t, redis.NewJournal(client))
}

func TestRedisJournal_TTLAndCap(t *testing.T) {
	mr, client := setup(t)
	journal := redis.NewJournal(client,
		redis.WithPrefix("test:"),
		redis.WithTTL(time.Minute),
		redis.WithMaxRecords(2),
	)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, journal.Record(ctx, domain.Record{
			SessionID:  "s1",
			Applied:    i,
			FinishedAt: time.Unix(int64(1000+i), 0),
		}))
	}

	history, err := journal.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Applied)

	assert.True(t, mr.Exists("test:journal:s1"))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("test:journal:s1"), "history should expire")

	sessions, err := journal.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sessions)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:session-1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:session-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := setup(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(short, "shared", 5*time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)

	require.NoError(t, unlock1(ctx))
	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock2, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "expired owner must not release the new lock")
	require.NoError(t, unlock2(ctx))
}

func TestRedisNotifier_PublishSubscribe(t *testing.T) {
	_, client := setup(t)
	notifier := redis.NewNotifier(client, "test:")

	ctx, cancel := context.WithCancel(context.Background())
	events, err := notifier.Subscribe(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), domain.CompletionEvent{
		EventBase: domain.EventBase{Type: domain.EventComplete, SessionID: "s1"},
		Names:     []string{"hero"},
		Applied:   3,
	}))

	select {
	case ev := <-events:
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, []string{"hero"}, ev.Names)
		assert.Equal(t, 3, ev.Applied)
	case <-time.After(2 * time.Second):
		t.Fatal("completion event not delivered")
	}

	cancel()
	for range events {
	}
}
