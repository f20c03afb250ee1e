package repo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FunnelBot/model"
	"github.com/rs/zerolog"
)

const defaultLockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// SessionManager gives each user an exclusive section around their session.
// Entries are reference counted so idle users hold no lock memory. With a
// Locker configured, the section is also held across replicas.
type SessionManager struct {
	store SessionStore

	mu    sync.Mutex
	locks map[int64]*lockEntry

	locker  Locker
	lockTTL time.Duration
	logger  zerolog.Logger
}

type ManagerOption func(*SessionManager)

// WithLocker adds a distributed lock on top of the in-process one.
func WithLocker(locker Locker, ttl time.Duration) ManagerOption {
	return func(m *SessionManager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

func WithManagerLogger(logger zerolog.Logger) ManagerOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

func NewSessionManager(store SessionStore, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		store:   store,
		locks:   make(map[int64]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) acquire(userID int64) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[userID]
	if !ok {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

func (m *SessionManager) release(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[userID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// WithLock runs fn while no other WithLock call for the same user is running.
// The lock is released on every return path, including panics.
func (m *SessionManager) WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		key := strconv.FormatInt(userID, 10)
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("error acquiring distributed lock: %w", err)
		}
		defer func() {
			// the request context may already be done; the lock must still go
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn().Err(err).Int64("user_id", userID).Msg("error releasing distributed lock, it will expire")
			}
		}()
	}

	return fn(ctx)
}

// Get reads the user's session. Call it inside WithLock.
func (m *SessionManager) Get(ctx context.Context, userID int64) (*model.Session, error) {
	return m.store.Get(ctx, userID)
}

// Put replaces the user's session. Call it inside WithLock.
func (m *SessionManager) Put(ctx context.Context, userID int64, s *model.Session) error {
	return m.store.Put(ctx, userID, s)
}

// Store returns the backing store.
func (m *SessionManager) Store() SessionStore {
	return m.store
}

func (m *SessionManager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
