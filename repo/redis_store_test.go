package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"FunnelBot/model"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newTestRedis(t)
	runSessionStoreContract(t, NewRedisStoreFromClient(client))
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStoreFromClient(client, WithPrefix("test:"), WithTTL(time.Hour))
	ctx := context.Background()

	s := model.NewSession(model.MessageRef{ChatID: 5, MessageID: 6}, time.Now().UTC())
	require.NoError(t, store.Put(ctx, 42, s))

	assert.True(t, mr.Exists("test:42"))
	assert.Equal(t, time.Hour, mr.TTL("test:42"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStoreFromClient(client)

	require.NoError(t, mr.Set("funnel:session:9", "{not json"))
	_, err := store.Get(context.Background(), 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStoreFromClient(client)
	mr.Close()

	assert.Error(t, store.Ping(context.Background()))
	_, err := store.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "7", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:7"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:7"))
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newTestRedis(t)
	first := NewRedisLocker(client, "test:")
	second := NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "7", 5*time.Second)
	require.NoError(t, err)

	timeout, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = second.Lock(timeout, "7", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := second.Lock(ctx, "7", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "7", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "7", 5*time.Second)
	require.NoError(t, err)

	// the first holder's release must not drop the second holder's lock
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:7"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("test:lock:7"))
}

func TestRedisLocker_ExtendsHeldLock(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "7", 300*time.Millisecond)
	require.NoError(t, err)

	// a render slower than the TTL: the lock is about to lapse
	mr.SetTTL("test:lock:7", 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL("test:lock:7") == 300*time.Millisecond
	}, time.Second, 10*time.Millisecond)

	mr.FastForward(250 * time.Millisecond)
	assert.True(t, mr.Exists("test:lock:7"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:7"))
}

func TestRedisLocker_StopsExtendingLostLock(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "7", 300*time.Millisecond)
	require.NoError(t, err)

	// another replica took the key after our lock expired
	require.NoError(t, mr.Set("test:lock:7", "someone-else"))
	mr.SetTTL("test:lock:7", 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, mr.TTL("test:lock:7"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:7")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestSessionManager_DistributedLockSerializesReplicas(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStoreFromClient(client)

	// two managers stand in for two bot replicas sharing one redis
	replicas := []*SessionManager{
		NewSessionManager(store, WithLocker(NewRedisLocker(client, "test:"), 5*time.Second)),
		NewSessionManager(store, WithLocker(NewRedisLocker(client, "test:"), 5*time.Second)),
	}

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(m *SessionManager) {
			defer wg.Done()
			err := m.WithLock(context.Background(), 1, func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}(replicas[i%2])
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
