package repo

import (
	"context"
	"time"

	"FunnelBot/model"
)

// SessionStore keeps one session per Telegram user id. Put replaces the whole
// record. Get returns model.ErrSessionNotFound when the user has none.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*model.Session, error)
	Put(ctx context.Context, userID int64, s *model.Session) error
	Ping(ctx context.Context) error
	Close() error
}

// UnlockFunc releases a lock taken by Locker.Lock.
type UnlockFunc func(ctx context.Context) error

// Locker serializes work on a key across bot replicas.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
