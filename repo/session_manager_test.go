package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	err       error
	locked    []string
	released  int
	unlockErr error
}

func (l *stubLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, key)
	return func(ctx context.Context) error {
		l.released++
		l.unlockErr = ctx.Err()
		return l.unlockErr
	}, nil
}

func TestSessionManager_SerializesSameUser(t *testing.T) {
	m := NewSessionManager(NewMemoryStore())

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock(context.Background(), 1, func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, m.activeLocks())
}

func TestSessionManager_DifferentUsersDoNotBlock(t *testing.T) {
	m := NewSessionManager(NewMemoryStore())
	entered := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = m.WithLock(context.Background(), 1, func(ctx context.Context) error {
			close(entered)
			<-done
			return nil
		})
	}()
	<-entered

	err := m.WithLock(context.Background(), 2, func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	close(done)
}

func TestSessionManager_ReleasesOnErrorAndPanic(t *testing.T) {
	m := NewSessionManager(NewMemoryStore())
	boom := errors.New("boom")

	err := m.WithLock(context.Background(), 1, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.activeLocks())

	assert.Panics(t, func() {
		_ = m.WithLock(context.Background(), 1, func(ctx context.Context) error { panic("boom") })
	})
	assert.Equal(t, 0, m.activeLocks())

	// still usable after the panic
	assert.NoError(t, m.WithLock(context.Background(), 1, func(ctx context.Context) error { return nil }))
}

func TestSessionManager_DistributedLock(t *testing.T) {
	locker := &stubLocker{}
	m := NewSessionManager(NewMemoryStore(), WithLocker(locker, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	err := m.WithLock(ctx, 99, func(ctx context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"99"}, locker.locked)
	assert.Equal(t, 1, locker.released)
	assert.NoError(t, locker.unlockErr, "release runs even after the caller's context is cancelled")
}

func TestSessionManager_LockerError(t *testing.T) {
	locker := &stubLocker{err: errors.New("redis down")}
	m := NewSessionManager(NewMemoryStore(), WithLocker(locker, 0))

	called := false
	err := m.WithLock(context.Background(), 1, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.False(t, called)
	assert.Equal(t, 0, m.activeLocks())
	assert.Equal(t, defaultLockTTL, m.lockTTL)
}
