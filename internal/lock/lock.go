// Package lock provides the mutual exclusion used to keep archive runs from
// overlapping across processes (redis) or within one process (local).
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	ErrNotAcquired = errors.New("lock is held by another owner")
	ErrLockNotHeld = errors.New("lock not held")
)

// Locker hands out leases on named keys.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock. Release is safe to call more than once.
// Refresh resets the lease's ttl; it returns ErrLockNotHeld once the lease
// has expired, been taken over or been released.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// --- Redis ---

const keyPrefix = "archive_lock:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lease never removes a lock someone else acquired afterwards.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{client: l.client, key: keyPrefix + key, token: token}, nil
}

type redisLease struct {
	client   redis.UniversalClient
	key      string
	token    string
	mu       sync.Mutex
	released bool
}

func (l *redisLease) Refresh(ctx context.Context, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrLockNotHeld
	}

	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis refresh %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", l.key, err)
	}
	if n == 0 {
		// Expired and possibly re-acquired by someone else.
		return ErrLockNotHeld
	}
	return nil
}

// --- Local ---

// LocalLocker is used when no redis is configured. The ttl is honoured so a
// lease that is never released does not block forever.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	clock func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), clock: time.Now}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrNotAcquired
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  string
	once   sync.Once
	err    error
}

func (l *localLease) Refresh(ctx context.Context, ttl time.Duration) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	e, ok := l.locker.held[l.key]
	if !ok || e.token != l.token || !l.locker.clock().Before(e.expires) {
		return ErrLockNotHeld
	}
	e.expires = l.locker.clock().Add(ttl)
	l.locker.held[l.key] = e
	return nil
}

func (l *localLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		defer l.locker.mu.Unlock()
		e, ok := l.locker.held[l.key]
		if !ok || e.token != l.token {
			l.err = ErrLockNotHeld
			return
		}
		delete(l.locker.held, l.key)
	})
	return l.err
}
